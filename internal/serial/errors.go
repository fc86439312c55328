// Package serial owns the fleet of open serial ports: the Registry that
// tracks which ports are open and who is subscribed to them, the Worker that
// drives each open port's OS handle, and the Broadcaster that fans read
// bytes out to subscribers.
package serial

import "errors"

// Sentinel errors returned by Registry operations. Callers use errors.Is to
// test for these; the session layer maps each to a wire-protocol error code.
var (
	// ErrPortNotFound is returned when a named OS device does not appear in
	// an enumeration pass.
	ErrPortNotFound = errors.New("port not found")

	// ErrNotOpen is returned when an operation targets a port with no
	// OpenPort entry in the Registry.
	ErrNotOpen = errors.New("port is not open")

	// ErrNotSubscribed is returned when a subscriber acts on a port it never
	// opened (or already closed).
	ErrNotSubscribed = errors.New("subscriber is not subscribed to this port")

	// ErrAlreadyLockedByOther is returned when a Lock is attempted on a port
	// whose write-lock is held by a different subscriber.
	ErrAlreadyLockedByOther = errors.New("port write-lock is held by another subscriber")

	// ErrNotLocked is returned when Unlock is attempted on a port with no
	// write-lock holder.
	ErrNotLocked = errors.New("port is not write-locked")

	// ErrLockedByOther is returned when Unlock is attempted by a subscriber
	// that does not hold the write-lock.
	ErrLockedByOther = errors.New("port write-lock is held by another subscriber")

	// ErrWriteLockNotHeld is returned when Write is attempted without first
	// acquiring the write-lock.
	ErrWriteLockNotHeld = errors.New("write-lock not held")

	// ErrPortClosed is returned when an operation races a Worker's terminal
	// shutdown.
	ErrPortClosed = errors.New("port has been closed")

	// ErrOpenFailed wraps an underlying OS failure to open a device.
	ErrOpenFailed = errors.New("failed to open port")

	// ErrEnumerationFailed wraps an underlying OS failure to list devices.
	ErrEnumerationFailed = errors.New("failed to enumerate ports")

	// ErrInvalidConfig is returned when a PortConfig fails validation.
	ErrInvalidConfig = errors.New("invalid port configuration")

	// ErrWriteTimeout is returned when a single write exceeds its bounded
	// per-write timeout; terminal for the Worker that observed it.
	ErrWriteTimeout = errors.New("write timeout")
)
