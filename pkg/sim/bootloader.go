package sim

import (
	"bytes"

	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Bootloader error codes reported through get-last-error.
const (
	BootErrNone           = 0x00
	BootErrLength         = 0x02
	BootErrState          = 0x03
	BootErrUnknownRequest = 0x04
	BootErrAlignment      = 0x05
	BootErrAddressRange   = 0x06
	BootErrNotErased      = 0x07
	BootErrDeviceCode     = 0x0B
	BootErrInvalidApp     = 0x0C
)

// Geometry is the memory layout of a simulated bootloader.
type Geometry struct {
	AppAddress             uint32
	AppSize                uint32
	WriteBlockSize         int
	EEPROMAddress          uint32
	EEPROMSize             int
	SupportsReadingFlash   bool
	EraseFlashErasesEEPROM bool
}

// EraseStep is one scripted response to an erase-flash request.
type EraseStep struct {
	Code uint8
	Left uint8
}

// Bootloader simulates a device running its bootloader.
type Bootloader struct {
	recorder
	Geometry

	Flash  []byte
	EEPROM []byte

	// EraseScript scripts the erase-flash responses. When nil the erase
	// counts down from 3.
	EraseScript []EraseStep

	// ExpectedDeviceCode, when set, is the only device code accepted.
	ExpectedDeviceCode string

	LastError    uint8
	Initialized  bool
	UploadType   uint16
	DeviceCode   string
	Erased       bool
	Restarted    bool
	RestartDelay uint16

	eraseIndex int
}

// NewBootloader returns a bootloader whose flash and EEPROM hold stale,
// non-erased data.
func NewBootloader(g Geometry) *Bootloader {
	return &Bootloader{
		Geometry: g,
		Flash:    make([]byte, g.AppSize),
		EEPROM:   make([]byte, g.EEPROMSize),
	}
}

func (b *Bootloader) fail(request uint8, code uint8) (int, error) {
	b.LastError = code
	return 0, Stall(request)
}

func (b *Bootloader) Control(dir transport.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	if b.closes > 0 {
		return 0, errClosed
	}
	req := b.record(dir, request, value, index, data)
	if n, handled, err := b.hook(req, data); handled {
		return n, err
	}

	switch request {
	case protocol.ReqBootSetDeviceCode:
		code := string(data)
		if b.ExpectedDeviceCode != "" && code != b.ExpectedDeviceCode {
			return b.fail(request, BootErrDeviceCode)
		}
		b.DeviceCode = code
		return len(data), nil

	case protocol.ReqBootInitialize:
		b.Initialized = true
		b.UploadType = value
		b.Erased = false
		b.eraseIndex = 0
		b.LastError = BootErrNone
		return 0, nil

	case protocol.ReqBootEraseFlash:
		return b.erase(request, data)

	case protocol.ReqBootWriteFlash:
		addr := uint32(value) | uint32(index)<<16
		if !b.Initialized {
			return b.fail(request, BootErrState)
		}
		if !b.Erased {
			return b.fail(request, BootErrNotErased)
		}
		off, ok := b.flashOffset(addr, len(data))
		if !ok {
			return b.fail(request, BootErrAddressRange)
		}
		if off%uint32(b.WriteBlockSize) != 0 {
			return b.fail(request, BootErrAlignment)
		}
		if len(data) != b.WriteBlockSize {
			return b.fail(request, BootErrLength)
		}
		return copy(b.Flash[off:], data), nil

	case protocol.ReqBootGetLastError:
		if len(data) < 1 {
			return 0, Stall(request)
		}
		data[0] = b.LastError
		return 1, nil

	case protocol.ReqBootCheckApp:
		if len(data) < 1 {
			return 0, Stall(request)
		}
		data[0] = BootErrNone
		if len(b.Flash) < 4 || bytes.Equal(b.Flash[:4], []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
			data[0] = BootErrInvalidApp
		}
		return 1, nil

	case protocol.ReqBootReadFlash:
		if !b.SupportsReadingFlash {
			return b.fail(request, BootErrUnknownRequest)
		}
		off, ok := b.flashOffset(uint32(value)|uint32(index)<<16, len(data))
		if !ok {
			return b.fail(request, BootErrAddressRange)
		}
		return copy(data, b.Flash[off:]), nil

	case protocol.ReqBootReadEEPROM:
		off, ok := b.eepromOffset(index, len(data))
		if !ok {
			return b.fail(request, BootErrAddressRange)
		}
		return copy(data, b.EEPROM[off:]), nil

	case protocol.ReqBootWriteEEPROM:
		off, ok := b.eepromOffset(index, 1)
		if !ok {
			return b.fail(request, BootErrAddressRange)
		}
		b.EEPROM[off] = byte(value)
		return 0, nil

	case protocol.ReqBootRestart:
		b.Restarted = true
		b.RestartDelay = value
		return 0, nil
	}
	return b.fail(request, BootErrUnknownRequest)
}

func (b *Bootloader) erase(request uint8, data []byte) (int, error) {
	if !b.Initialized {
		return b.fail(request, BootErrState)
	}
	if len(data) < 2 {
		return b.fail(request, BootErrLength)
	}

	step := EraseStep{}
	switch {
	case b.EraseScript != nil && b.eraseIndex < len(b.EraseScript):
		step = b.EraseScript[b.eraseIndex]
	case b.EraseScript == nil && b.eraseIndex < 3:
		step.Left = uint8(3 - b.eraseIndex)
	}
	b.eraseIndex++

	data[0], data[1] = step.Code, step.Left
	if step.Code == 0 && step.Left == 0 {
		for i := range b.Flash {
			b.Flash[i] = 0xFF
		}
		if b.EraseFlashErasesEEPROM {
			for i := range b.EEPROM {
				b.EEPROM[i] = 0xFF
			}
		}
		b.Erased = true
	}
	return 2, nil
}

func (b *Bootloader) flashOffset(addr uint32, n int) (uint32, bool) {
	if addr < b.AppAddress || uint64(addr)+uint64(n) > uint64(b.AppAddress)+uint64(b.AppSize) {
		return 0, false
	}
	return addr - b.AppAddress, true
}

func (b *Bootloader) eepromOffset(addr uint16, n int) (uint32, bool) {
	a := uint32(addr)
	if a < b.EEPROMAddress || int(a-b.EEPROMAddress)+n > b.EEPROMSize {
		return 0, false
	}
	return a - b.EEPROMAddress, true
}

// Close marks the simulator closed; further requests fail as disconnected.
func (b *Bootloader) Close() error {
	b.closes++
	return nil
}
