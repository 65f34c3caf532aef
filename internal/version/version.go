// ABOUTME: Build and product identification
// ABOUTME: Reported by the command line and in the remote hello message
package version

import "fmt"

const (
	// Version is the software version
	Version = "0.3.0"

	// Product is the product name
	Product = "emustream"

	// Manufacturer identifies the publisher
	Manufacturer = "harperreed"
)

// String returns the one-line identification printed by -version and logged at startup
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
