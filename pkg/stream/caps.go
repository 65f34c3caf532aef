// ABOUTME: Output format capabilities for one stream session
// ABOUTME: Float32 and surround flags that only ever downgrade
package stream

import (
	"strings"
	"sync/atomic"
)

// Capabilities tracks which output formats the device is believed to accept.
// Flags start from platform knowledge and configuration and are only ever
// cleared.
type Capabilities struct {
	float32  atomic.Bool
	surround atomic.Bool
}

// NewCapabilities returns capabilities with the given initial flags
func NewCapabilities(floatOK, surroundOK bool) *Capabilities {
	c := &Capabilities{}
	c.float32.Store(floatOK)
	c.surround.Store(surroundOK)
	return c
}

// initialCapabilities applies platform quirks to the configured flags.
// macOS output is limited to stereo integer, and Creative X-Fi drivers
// mishandle float buffers.
func initialCapabilities(goos, renderer string, floatOK, surroundOK bool) *Capabilities {
	if goos == "darwin" {
		return NewCapabilities(false, false)
	}
	if strings.Contains(renderer, "X-Fi") {
		floatOK = false
	}
	return NewCapabilities(floatOK, surroundOK)
}

func (c *Capabilities) Float32() bool  { return c.float32.Load() }
func (c *Capabilities) Surround() bool { return c.surround.Load() }

// DowngradeFloat disables float output and reports whether this call did it
func (c *Capabilities) DowngradeFloat() bool {
	return c.float32.CompareAndSwap(true, false)
}

// DowngradeSurround disables surround output and reports whether this call did it
func (c *Capabilities) DowngradeSurround() bool {
	return c.surround.CompareAndSwap(true, false)
}
