// Package serialcmd drives a controller over its TTL or USB virtual serial
// port using the compact and the addressed (0xAA) command protocols.
package serialcmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.bug.st/serial"

	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

// Command bytes. In the addressed protocol the high bit is cleared.
const (
	cmdSetTarget                = 0xC0 // low 5 bits carry the target's low bits
	cmdStopMotor                = 0xFF
	cmdForceDutyCycleTarget     = 0xF2
	cmdForceDutyCycle           = 0xF4
	cmdGetVariables             = 0xE5
	cmdGetVariablesClearHalting = 0xE3
	addressedStart              = 0xAA
)

// MaxSegment is the largest variables segment one request can read.
const MaxSegment = 15

// DefaultTimeout is the read timeout applied to ports opened with Open.
const DefaultTimeout = 500 * time.Millisecond

// ErrTimeout is returned when the device does not answer in time.
var ErrTimeout = errors.New("timed out waiting for a response")

// Config holds the connection configuration.
type Config struct {
	// Addressed selects the 0xAA protocol, required when several devices
	// share a line or the compact protocol is disabled on the device.
	Addressed            bool
	DeviceNumber         uint16
	Use14BitDeviceNumber bool
	CRC                  bool

	Logger *slog.Logger
}

// DefaultConfig returns the compact protocol without CRC.
func DefaultConfig() Config {
	return Config{
		DeviceNumber: 11,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Option is a functional option for configuring a Conn.
type Option func(*Config)

// WithDeviceNumber selects the addressed protocol for device number n.
func WithDeviceNumber(n uint16) Option {
	return func(c *Config) {
		c.Addressed = true
		c.DeviceNumber = n
	}
}

// With14BitDeviceNumber sends the device number as two bytes.
func With14BitDeviceNumber() Option {
	return func(c *Config) {
		c.Use14BitDeviceNumber = true
	}
}

// WithCRC appends a CRC-7 byte to every command and checks the one the
// device appends to responses.
func WithCRC() Option {
	return func(c *Config) {
		c.CRC = true
	}
}

// WithLogger sets the logger used by the Conn.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// OptionsFromSettings returns the options matching the serial settings of
// a device: its device number width, CRC, and whether the compact protocol
// is disabled.
func OptionsFromSettings(s settings.Settings) []Option {
	var opts []Option
	if s.SerialDisableCompactProtocol {
		opts = append(opts, WithDeviceNumber(s.SerialDeviceNumber))
	}
	if s.SerialEnable14BitDeviceNumber {
		opts = append(opts, With14BitDeviceNumber())
	}
	if s.SerialEnableCRC {
		opts = append(opts, WithCRC())
	}
	return opts
}

// Conn sends commands over a byte stream. It is not safe for concurrent
// use.
type Conn struct {
	rw     io.ReadWriter
	closer io.Closer
	cfg    Config
	log    *slog.Logger
}

// New returns a Conn over rw. A serial port should return from Read with
// no data once its read timeout elapses.
func New(rw io.ReadWriter, opts ...Option) *Conn {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Conn{rw: rw, cfg: cfg, log: cfg.Logger}
}

// Open opens a serial port at baud 8N1.
func Open(name string, baud int, opts ...Option) (*Conn, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(DefaultTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set serial timeout: %w", err)
	}
	c := New(port, opts...)
	c.closer = port
	c.log.Info("serial port opened", "port", name, "baud", baud)
	return c, nil
}

// Ports lists the serial ports present on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Close closes the underlying port if the Conn opened it.
func (c *Conn) Close() error {
	if c.closer == nil {
		return nil
	}
	err := c.closer.Close()
	c.closer = nil
	return err
}

func (c *Conn) checkConfig() error {
	limit := uint16(0x7F)
	if c.cfg.Use14BitDeviceNumber {
		limit = 0x3FFF
	}
	if c.cfg.Addressed && c.cfg.DeviceNumber > limit {
		return fmt.Errorf("device number %d is larger than %d", c.cfg.DeviceNumber, limit)
	}
	return nil
}

// frame builds the bytes for cmd followed by 7-bit data bytes.
func (c *Conn) frame(cmd byte, data ...byte) []byte {
	var out []byte
	if c.cfg.Addressed {
		out = append(out, addressedStart, byte(c.cfg.DeviceNumber&0x7F))
		if c.cfg.Use14BitDeviceNumber {
			out = append(out, byte(c.cfg.DeviceNumber>>7&0x7F))
		}
		out = append(out, cmd&0x7F)
	} else {
		out = append(out, cmd)
	}
	out = append(out, data...)
	if c.cfg.CRC {
		out = append(out, CRC7(out))
	}
	return out
}

func (c *Conn) send(cmd byte, data ...byte) error {
	if err := c.checkConfig(); err != nil {
		return err
	}
	buf := c.frame(cmd, data...)
	c.log.Debug("serial write", "bytes", fmt.Sprintf("% X", buf))
	if _, err := c.rw.Write(buf); err != nil {
		return fmt.Errorf("failed to write command 0x%02X: %w", cmd, err)
	}
	return nil
}

// readFull reads exactly len(buf) bytes. A read that returns no data and no
// error is a timeout.
func (c *Conn) readFull(buf []byte) error {
	for got := 0; got < len(buf); {
		n, err := c.rw.Read(buf[got:])
		got += n
		switch {
		case err == io.EOF && got < len(buf):
			return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, got, len(buf))
		case err != nil && err != io.EOF:
			return err
		case n == 0:
			return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, got, len(buf))
		}
	}
	return nil
}

// encode14 splits a 14-bit value into low and high 7-bit data bytes.
func encode14(v uint16) (byte, byte) {
	return byte(v & 0x7F), byte(v >> 7 & 0x7F)
}

// SetTarget sets the input target, 0 to 4095.
func (c *Conn) SetTarget(target uint16) error {
	if target > 4095 {
		return fmt.Errorf("target %d is larger than 4095", target)
	}
	return c.send(cmdSetTarget|byte(target&0x1F), byte(target>>5&0x7F))
}

// StopMotor turns the motor off.
func (c *Conn) StopMotor() error {
	return c.send(cmdStopMotor)
}

func checkDuty(duty int16) error {
	if duty < -600 || duty > 600 {
		return fmt.Errorf("duty cycle %d is outside -600 to 600", duty)
	}
	return nil
}

// ForceDutyCycleTarget overrides the duty cycle target, -600 to 600. The
// value is sent as 14-bit two's complement.
func (c *Conn) ForceDutyCycleTarget(duty int16) error {
	if err := checkDuty(duty); err != nil {
		return err
	}
	lo, hi := encode14(uint16(duty))
	return c.send(cmdForceDutyCycleTarget, lo, hi)
}

// ForceDutyCycle overrides the duty cycle, -600 to 600.
func (c *Conn) ForceDutyCycle(duty int16) error {
	if err := checkDuty(duty); err != nil {
		return err
	}
	lo, hi := encode14(uint16(duty))
	return c.send(cmdForceDutyCycle, lo, hi)
}

// GetVariableSegment reads length bytes, at most MaxSegment, of the
// variables blob starting at offset. clearHalting clears the halting error
// flags after they are read.
func (c *Conn) GetVariableSegment(offset, length int, clearHalting bool) ([]byte, error) {
	if length < 1 || length > MaxSegment || offset < 0 || offset+length > protocol.VariablesSize {
		return nil, fmt.Errorf("invalid variable segment %d+%d", offset, length)
	}
	cmd := byte(cmdGetVariables)
	if clearHalting {
		cmd = cmdGetVariablesClearHalting
	}
	if err := c.send(cmd, byte(offset), byte(length)); err != nil {
		return nil, err
	}

	resp := make([]byte, length)
	if c.cfg.CRC {
		resp = make([]byte, length+1)
	}
	if err := c.readFull(resp); err != nil {
		return nil, fmt.Errorf("failed to read variables: %w", err)
	}
	c.log.Debug("serial read", "bytes", fmt.Sprintf("% X", resp))
	if c.cfg.CRC {
		if want := CRC7(resp[:length]); resp[length] != want {
			return nil, fmt.Errorf("failed to read variables: response CRC 0x%02X, want 0x%02X", resp[length], want)
		}
	}
	return resp[:length], nil
}

// GetVariables reads the whole variables blob in MaxSegment-byte pieces.
func (c *Conn) GetVariables() (protocol.Variables, error) {
	var buf [protocol.VariablesSize]byte
	for off := 0; off < len(buf); off += MaxSegment {
		n := min(MaxSegment, len(buf)-off)
		seg, err := c.GetVariableSegment(off, n, false)
		if err != nil {
			return protocol.Variables{}, err
		}
		copy(buf[off:], seg)
	}
	return protocol.DecodeVariables(buf[:])
}
