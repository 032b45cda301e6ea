package device

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Handle is an open session with one controller. It owns its transport and
// is not safe for concurrent use.
type Handle struct {
	dev Device
	t   transport.Transport
	cfg Config
	log *slog.Logger
}

// NewHandle wraps an already open transport. The Handle takes ownership of
// t and closes it in Close.
func NewHandle(d Device, t transport.Transport, opts ...Option) *Handle {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handle{
		dev: d,
		t:   t,
		cfg: cfg,
		log: cfg.Logger.With("device", d.SerialNumber),
	}
}

// Device returns the device this handle is bound to.
func (h *Handle) Device() Device { return h.dev }

// Close releases the transport. Calls after the first are no-ops.
func (h *Handle) Close() error {
	if h.t == nil {
		return nil
	}
	err := h.t.Close()
	h.t = nil
	if err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	return nil
}

var errClosed = errors.New("device handle is closed")

func (h *Handle) control(dir transport.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	if h.t == nil {
		return 0, errClosed
	}
	n, err := h.t.Control(dir, request, value, index, data)
	h.log.Debug("control transfer",
		"dir", dir.String(),
		"request", fmt.Sprintf("0x%02X", request),
		"value", value,
		"index", index,
		"length", len(data),
		"transferred", n,
		"err", err)
	return n, err
}

// command sends a request without a data stage.
func (h *Handle) command(request uint8, value, index uint16) error {
	_, err := h.control(transport.Out, request, value, index, nil)
	return err
}

// readSegment reads exactly len(buf) bytes.
func (h *Handle) readSegment(op string, request uint8, value, index uint16, buf []byte) error {
	n, err := h.control(transport.In, request, value, index, buf)
	if err != nil {
		return err
	}
	if n != len(buf) {
		return &transport.LengthError{Op: op, Expected: len(buf), Actual: n}
	}
	return nil
}

// writeSegment writes all of data.
func (h *Handle) writeSegment(op string, request uint8, value, index uint16, data []byte) error {
	n, err := h.control(transport.Out, request, value, index, data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return &transport.LengthError{Op: op, Expected: len(data), Actual: n}
	}
	return nil
}

// readBlob fills buf[start:end] using segment reads of at most
// MaxTransferSize bytes at increasing offsets.
func (h *Handle) readBlob(op string, request uint8, value uint16, buf []byte, start, end int) error {
	for off := start; off < end; off += protocol.MaxTransferSize {
		n := min(protocol.MaxTransferSize, end-off)
		if err := h.readSegment(op, request, value, uint16(off), buf[off:off+n]); err != nil {
			return err
		}
	}
	return nil
}

// writeBlob sends buf[start:end] using segment writes of at most
// MaxTransferSize bytes.
func (h *Handle) writeBlob(op string, request uint8, buf []byte, start, end int) error {
	for off := start; off < end; off += protocol.MaxTransferSize {
		n := min(protocol.MaxTransferSize, end-off)
		if err := h.writeSegment(op, request, 0, uint16(off), buf[off:off+n]); err != nil {
			return err
		}
	}
	return nil
}

// SetTarget sets the input target, 0 to 4095, and clears the awaiting
// command error.
func (h *Handle) SetTarget(target uint16) error {
	if err := h.command(protocol.ReqSetTarget, target, 0); err != nil {
		return fmt.Errorf("failed to set target: %w", err)
	}
	return nil
}

// StopMotor turns the motor off and raises the awaiting command error.
func (h *Handle) StopMotor() error {
	if err := h.command(protocol.ReqMotorOff, 0, 0); err != nil {
		return fmt.Errorf("failed to stop motor: %w", err)
	}
	return nil
}

// ForceDutyCycleTarget overrides the PID output with a duty cycle target
// (-600 to 600), still subject to acceleration limits.
func (h *Handle) ForceDutyCycleTarget(duty int16) error {
	if err := h.command(protocol.ReqForceDutyCycleTarget, uint16(duty), 0); err != nil {
		return fmt.Errorf("failed to force duty cycle target: %w", err)
	}
	return nil
}

// ForceDutyCycle overrides the duty cycle directly (-600 to 600).
func (h *Handle) ForceDutyCycle(duty int16) error {
	if err := h.command(protocol.ReqForceDutyCycle, uint16(duty), 0); err != nil {
		return fmt.Errorf("failed to force duty cycle: %w", err)
	}
	return nil
}

// Reinitialize makes the device reload its settings from EEPROM.
func (h *Handle) Reinitialize() error {
	if err := h.command(protocol.ReqReinitialize, 0, 0); err != nil {
		return fmt.Errorf("failed to reinitialize: %w", err)
	}
	h.log.Info("device reinitialized")
	return nil
}

// StartBootloader makes the device reset into its bootloader. The handle is
// unusable afterwards and should be closed.
func (h *Handle) StartBootloader() error {
	if err := h.command(protocol.ReqStartBootloader, 0, 0); err != nil {
		return fmt.Errorf("failed to start bootloader: %w", err)
	}
	h.log.Info("bootloader started")
	return nil
}

// GetDebugData reads up to n bytes of firmware debug data. At most one
// transfer's worth is returned.
func (h *Handle) GetDebugData(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("invalid debug data length %d", n)
	}
	buf := make([]byte, min(n, protocol.MaxTransferSize))
	got, err := h.control(transport.In, protocol.ReqGetDebugData, 0, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to get debug data: %w", err)
	}
	return buf[:got], nil
}
