// Package vsystem adjusts OS-level settings for the Veyon service:
// autostart, service arguments and the firewall exception for the service
// port. Implementations only return errors; callers decide whether a
// failure aborts or is reported and skipped.
package vsystem

// ServicePort is the TCP port the Veyon service listens on.
const ServicePort = 11100

// Controller is the system-service control surface.
type Controller interface {
	// SetServiceAutostart enables or disables starting the service at boot.
	SetServiceAutostart(enable bool) error

	// SetServiceArguments replaces the arguments the service is started with.
	SetServiceArguments(args string) error

	// EnableFirewallException opens or closes the firewall for ServicePort.
	EnableFirewallException(enable bool) error
}

// New returns the controller for the current platform.
func New() Controller {
	return newController()
}
