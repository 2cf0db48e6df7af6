package endec

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// ErrReadTimeout reports that no data arrived within the configured read
// window. The pipeline treats it as a cue to flush a half-collected block,
// not as a connection failure.
var ErrReadTimeout = errors.New("endec: read timed out")

// PortConfig carries the serial parameters for the ENDEC link. The Sage
// front panel speaks 9600 baud, 8 data bits, no parity, one stop bit.
type PortConfig struct {
	Device      string
	BaudRate    int
	ReadTimeout time.Duration
}

// Port is a line-oriented reader over the ENDEC serial device.
type Port struct {
	device  string
	port    serial.Port
	pending []byte
	readBuf [512]byte
}

// Open opens the serial device and applies the read timeout.
func Open(cfg PortConfig) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Device, err)
	}
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %s: %w", cfg.Device, err)
	}
	return &Port{device: cfg.Device, port: port}, nil
}

// ReadLine returns the next newline-terminated line with the line ending
// and surrounding whitespace stripped. A silent device surfaces as
// ErrReadTimeout; anything else is a real failure and the caller should
// reopen the port.
func (p *Port) ReadLine() (string, error) {
	for {
		if i := bytes.IndexByte(p.pending, '\n'); i >= 0 {
			line := strings.TrimSpace(string(p.pending[:i]))
			p.pending = p.pending[i+1:]
			return line, nil
		}

		n, err := p.port.Read(p.readBuf[:])
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p.device, err)
		}
		if n == 0 {
			// The serial library signals an expired read timeout as a
			// zero-byte read with a nil error.
			return "", ErrReadTimeout
		}
		p.pending = append(p.pending, p.readBuf[:n]...)
	}
}

func (p *Port) Close() error {
	return p.port.Close()
}
