package serial

import (
	"time"

	goserial "go.bug.st/serial"
)

// Port is the subset of go.bug.st/serial.Port a Worker drives. Narrowing the
// dependency to an interface lets Worker and Registry tests run against a
// fake device instead of real hardware.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetMode(mode *goserial.Mode) error
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// openFunc is replaced in tests to avoid touching real hardware.
var openFunc = func(name string, mode *goserial.Mode) (Port, error) {
	return goserial.Open(name, mode)
}
