// ABOUTME: Auto-reset wake event for the playback goroutine
// ABOUTME: Set is a non-blocking hint, Wait consumes it
package stream

// Event wakes a waiting goroutine. Sets coalesce until the next Wait, which
// consumes the signal.
type Event struct {
	ch chan struct{}
}

// NewEvent creates a cleared event
func NewEvent() *Event {
	return &Event{ch: make(chan struct{}, 1)}
}

// Set signals the event. It never blocks.
func (e *Event) Set() {
	select {
	case e.ch <- struct{}{}:
	default:
	}
}

// Clear drops a pending signal
func (e *Event) Clear() {
	select {
	case <-e.ch:
	default:
	}
}

// Wait blocks until the event is set, then clears it
func (e *Event) Wait() {
	<-e.ch
}

// IsSet reports whether a signal is pending
func (e *Event) IsSet() bool {
	return len(e.ch) > 0
}
