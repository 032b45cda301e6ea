package bootloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Device is a bootloader found on the bus.
type Device struct {
	Type         Type
	SerialNumber string
	OSID         string

	info transport.Info
}

// Info returns the USB description the bootloader was discovered with.
func (d Device) Info() transport.Info { return d.info }

// List returns every connected device running a known bootloader.
func List(ctx context.Context) ([]Device, error) {
	infos, err := transport.Enumerate(ctx, IsBootloader)
	if err != nil {
		return nil, fmt.Errorf("failed to list bootloaders: %w", err)
	}
	devs := make([]Device, 0, len(infos))
	for _, info := range infos {
		t, _ := LookupType(info.VendorID, info.ProductID)
		devs = append(devs, Device{Type: t, SerialNumber: info.SerialNumber, OSID: info.Path, info: info})
	}
	return devs, nil
}

// Open opens a session with the bootloader d.
func Open(d Device, opts ...Option) (*Handle, error) {
	t, err := transport.OpenUSB(d.info)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", d.Type.Name, err)
	}
	return NewHandle(d.Type, t, opts...), nil
}

// Handle is an open session with one bootloader. It owns its transport and
// is not safe for concurrent use.
type Handle struct {
	typ Type
	t   transport.Transport
	cfg Config
	log *slog.Logger
}

// NewHandle wraps an already open transport to a bootloader of type typ.
func NewHandle(typ Type, t transport.Transport, opts ...Option) *Handle {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handle{
		typ: typ,
		t:   t,
		cfg: cfg,
		log: cfg.Logger.With("bootloader", typ.Name),
	}
}

// Type returns the bootloader variant.
func (h *Handle) Type() Type { return h.typ }

// Close releases the transport. Calls after the first are no-ops.
func (h *Handle) Close() error {
	if h.t == nil {
		return nil
	}
	err := h.t.Close()
	h.t = nil
	if err != nil {
		return fmt.Errorf("failed to close bootloader: %w", err)
	}
	return nil
}

var errClosed = errors.New("bootloader handle is closed")

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

// GetLastError returns the code of the last error the bootloader
// recorded.
func (h *Handle) GetLastError() (uint8, error) {
	buf := make([]byte, 1)
	n, err := h.control(transport.In, protocol.ReqBootGetLastError, 0, 0, buf)
	if err != nil {
		return 0, fmt.Errorf("failed to get last error: %w", err)
	}
	if n != 1 {
		return 0, &transport.LengthError{Op: "get last error", Expected: 1, Actual: n}
	}
	return buf[0], nil
}

// explain replaces a stalled request's error with the bootloader's own
// error code when it can be fetched. Any other failure, including a failed
// get-last-error, leaves err untouched.
func (h *Handle) explain(err error) error {
	if !transport.IsStall(err) {
		return err
	}
	code, subErr := h.GetLastError()
	if subErr != nil || code == 0 {
		return err
	}
	return newDeviceError(code, err)
}

// write sends a request whose data stage can be rejected by the
// bootloader.
func (h *Handle) write(request uint8, value, index uint16, data []byte) (int, error) {
	n, err := h.control(transport.Out, request, value, index, data)
	if err != nil {
		return n, h.explain(err)
	}
	return n, nil
}

// Initialize prepares the bootloader to receive firmware. UploadAuto picks
// the type from the bootloader's capabilities.
func (h *Handle) Initialize(u UploadType) error {
	if u == UploadAuto {
		u = h.typ.DefaultUploadType()
	}
	if h.typ.DeviceCode != "" {
		code := []byte(h.typ.DeviceCode)
		if _, err := h.write(protocol.ReqBootSetDeviceCode, 0, 0, code); err != nil {
			return fmt.Errorf("failed to set device code: %w", err)
		}
	}
	if _, err := h.write(protocol.ReqBootInitialize, u.wire(), 0, nil); err != nil {
		return fmt.Errorf("failed to initialize bootloader: %w", err)
	}
	h.log.Info("bootloader initialized", "upload_type", u.String())
	return nil
}

// EraseFlash erases the application flash, reporting progress after every
// step. The bootloader answers each step with an error code and the number
// of steps left.
func (h *Handle) EraseFlash(progress ProgressFunc) error {
	maxProgress := 0
	resp := make([]byte, 2)
	for step := 0; step < h.cfg.MaxEraseSteps; step++ {
		n, err := h.control(transport.In, protocol.ReqBootEraseFlash, 0, 0, resp)
		if err != nil {
			return fmt.Errorf("failed to erase flash: %w", h.explain(err))
		}
		if n != len(resp) {
			return fmt.Errorf("failed to erase flash: %w",
				&transport.LengthError{Op: "erase flash", Expected: len(resp), Actual: n})
		}
		code, left := resp[0], int(resp[1])
		if code != 0 {
			return fmt.Errorf("failed to erase flash: %w", newDeviceError(code, nil))
		}
		if left+1 > maxProgress {
			maxProgress = left + 1
		}
		report(progress, "Erasing flash...", maxProgress-left, maxProgress)
		if left == 0 {
			h.log.Info("flash erased", "steps", step+1)
			return nil
		}
	}
	return fmt.Errorf("failed to erase flash: no completion after %d steps", h.cfg.MaxEraseSteps)
}

// EraseEEPROMMarker erases the first EEPROM byte so the new firmware loads
// its default settings on first boot.
func (h *Handle) EraseEEPROMMarker() error {
	if err := h.WriteEEPROM(0, []byte{0xFF}); err != nil {
		return fmt.Errorf("failed to erase EEPROM: %w", err)
	}
	return nil
}

// WriteFlashBlock writes one block of application flash. The data is
// padded with 0xFF to the write block size. The transferred length is
// checked against len(data).
func (h *Handle) WriteFlashBlock(address uint32, data []byte) error {
	if len(data) > h.typ.WriteBlockSize {
		return fmt.Errorf("flash block of %d bytes is larger than the %d byte write block", len(data), h.typ.WriteBlockSize)
	}
	payload := make([]byte, h.typ.WriteBlockSize)
	copy(payload, data)
	for i := len(data); i < len(payload); i++ {
		payload[i] = 0xFF
	}

	n, err := h.write(protocol.ReqBootWriteFlash, uint16(address), uint16(address>>16), payload)
	if err != nil {
		return fmt.Errorf("failed to write flash at 0x%06X: %w", address, err)
	}
	if n != len(data) {
		return fmt.Errorf("failed to write flash at 0x%06X: %w", address,
			&transport.LengthError{Op: "write flash", Expected: len(data), Actual: n})
	}
	return nil
}

// ReadFlash reads length bytes of application flash.
func (h *Handle) ReadFlash(address uint32, length int) ([]byte, error) {
	if !h.typ.SupportsReadingFlash {
		return nil, fmt.Errorf("failed to read flash: %w", ErrNotSupported)
	}
	if !h.typ.inApp(address, length) {
		return nil, fmt.Errorf("failed to read flash: range 0x%06X+%d is outside the application region", address, length)
	}
	buf := make([]byte, length)
	for off := 0; off < length; off += protocol.MaxTransferSize {
		seg := buf[off:min(off+protocol.MaxTransferSize, length)]
		addr := address + uint32(off)
		n, err := h.control(transport.In, protocol.ReqBootReadFlash, uint16(addr), uint16(addr>>16), seg)
		if err != nil {
			return nil, fmt.Errorf("failed to read flash at 0x%06X: %w", addr, h.explain(err))
		}
		if n != len(seg) {
			return nil, &transport.LengthError{Op: "read flash", Expected: len(seg), Actual: n}
		}
	}
	return buf, nil
}

func (h *Handle) checkEEPROM(offset, length int) error {
	if !h.typ.SupportsEEPROMAccess {
		return ErrNotSupported
	}
	if offset < 0 || length < 0 || offset+length > h.typ.EEPROMSize {
		return fmt.Errorf("EEPROM range %d+%d is outside 0..%d", offset, length, h.typ.EEPROMSize)
	}
	return nil
}

// ReadEEPROM reads length bytes of EEPROM starting at offset.
func (h *Handle) ReadEEPROM(offset, length int) ([]byte, error) {
	if err := h.checkEEPROM(offset, length); err != nil {
		return nil, fmt.Errorf("failed to read EEPROM: %w", err)
	}
	buf := make([]byte, length)
	for off := 0; off < length; off += protocol.MaxTransferSize {
		seg := buf[off:min(off+protocol.MaxTransferSize, length)]
		addr := uint16(h.typ.EEPROMAddress) + uint16(offset+off)
		n, err := h.control(transport.In, protocol.ReqBootReadEEPROM, 0, addr, seg)
		if err != nil {
			return nil, fmt.Errorf("failed to read EEPROM: %w", h.explain(err))
		}
		if n != len(seg) {
			return nil, &transport.LengthError{Op: "read EEPROM", Expected: len(seg), Actual: n}
		}
	}
	return buf, nil
}

// WriteEEPROM writes data to EEPROM starting at offset, one byte per
// request.
func (h *Handle) WriteEEPROM(offset int, data []byte) error {
	if err := h.checkEEPROM(offset, len(data)); err != nil {
		return fmt.Errorf("failed to write EEPROM: %w", err)
	}
	for i, b := range data {
		addr := uint16(h.typ.EEPROMAddress) + uint16(offset+i)
		if _, err := h.write(protocol.ReqBootWriteEEPROM, uint16(b), addr, nil); err != nil {
			return fmt.Errorf("failed to write EEPROM at 0x%04X: %w", addr, err)
		}
	}
	return nil
}

// CheckApplication asks the bootloader whether a valid application is
// present. It returns a *DeviceError describing the problem when not.
func (h *Handle) CheckApplication() error {
	buf := make([]byte, 1)
	n, err := h.control(transport.In, protocol.ReqBootCheckApp, 0, 0, buf)
	if err != nil {
		return fmt.Errorf("failed to check application: %w", h.explain(err))
	}
	if n != 1 {
		return &transport.LengthError{Op: "check application", Expected: 1, Actual: n}
	}
	if buf[0] != 0 {
		return newDeviceError(buf[0], nil)
	}
	return nil
}

// Restart makes the bootloader reset after a short delay and run the
// application. It returns as soon as the request is accepted.
func (h *Handle) Restart() error {
	if _, err := h.control(transport.Out, protocol.ReqBootRestart, protocol.RestartDelayMs, 0, nil); err != nil {
		return fmt.Errorf("failed to restart: %w", err)
	}
	h.log.Info("restart requested", "delay_ms", protocol.RestartDelayMs)
	return nil
}

func report(progress ProgressFunc, status string, current, total int) {
	if progress != nil {
		progress(Progress{Status: status, Current: current, Max: total})
	}
}
