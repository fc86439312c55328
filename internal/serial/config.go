package serial

import (
	"fmt"
	"strings"

	goserial "go.bug.st/serial"
)

// Parity mirrors go.bug.st/serial's Parity enum so the rest of the package
// never imports that package directly outside of conversion helpers.
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

func (p Parity) toLib() goserial.Parity {
	switch p {
	case ParityOdd:
		return goserial.OddParity
	case ParityEven:
		return goserial.EvenParity
	case ParityMark:
		return goserial.MarkParity
	case ParitySpace:
		return goserial.SpaceParity
	default:
		return goserial.NoParity
	}
}

// ParseParity parses the config/protocol string form of parity.
func ParseParity(s string) (Parity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ParityNone, nil
	case "odd":
		return ParityOdd, nil
	case "even":
		return ParityEven, nil
	case "mark":
		return ParityMark, nil
	case "space":
		return ParitySpace, nil
	default:
		return 0, fmt.Errorf("%w: parity %q", ErrInvalidConfig, s)
	}
}

// StopBits mirrors go.bug.st/serial's StopBits enum.
type StopBits int

const (
	StopBits1 StopBits = iota
	StopBits1Half
	StopBits2
)

func (s StopBits) toLib() goserial.StopBits {
	switch s {
	case StopBits1Half:
		return goserial.OnePointFiveStopBits
	case StopBits2:
		return goserial.TwoStopBits
	default:
		return goserial.OneStopBit
	}
}

// ParseStopBits accepts the conventional integer encoding used by config
// files and the CLI: 1, 2, or 15 (meaning 1.5).
func ParseStopBits(n int) (StopBits, error) {
	switch n {
	case 0, 1:
		return StopBits1, nil
	case 2:
		return StopBits2, nil
	case 15:
		return StopBits1Half, nil
	default:
		return 0, fmt.Errorf("%w: stop bits %d", ErrInvalidConfig, n)
	}
}

// FlowControl records the requested flow-control discipline. go.bug.st/serial
// does not expose flow control on its Mode struct and nothing in this package
// toggles the RTS/CTS lines, so this value is advisory — validated and
// reported, not enforced on the wire. See DESIGN.md for the rationale.
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlHardware
	FlowControlSoftware
)

// ParseFlowControl parses the config/protocol string form of flow control.
func ParseFlowControl(s string) (FlowControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return FlowControlNone, nil
	case "hardware", "rtscts":
		return FlowControlHardware, nil
	case "software", "xonxoff":
		return FlowControlSoftware, nil
	default:
		return 0, fmt.Errorf("%w: flow control %q", ErrInvalidConfig, s)
	}
}

// PortConfig is the serial line configuration applied when a Worker opens an
// OS device.
type PortConfig struct {
	BaudRate       int
	DataBits       int
	StopBits       StopBits
	Parity         Parity
	FlowControl    FlowControl
	ReadTimeoutMs  int
	WriteTimeoutMs int
}

// Validate checks that a PortConfig is usable before it reaches the OS.
func (c PortConfig) Validate() error {
	if c.BaudRate < 1 {
		return fmt.Errorf("%w: baud rate must be positive", ErrInvalidConfig)
	}
	if c.DataBits < 5 || c.DataBits > 8 {
		return fmt.Errorf("%w: data bits must be between 5 and 8", ErrInvalidConfig)
	}
	return nil
}

// ToSerialMode converts to the Mode value go.bug.st/serial.Open expects.
func (c PortConfig) ToSerialMode() *goserial.Mode {
	return &goserial.Mode{
		BaudRate: c.BaudRate,
		Parity:   c.Parity.toLib(),
		DataBits: c.DataBits,
		StopBits: c.StopBits.toLib(),
	}
}
