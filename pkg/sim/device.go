package sim

import (
	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
	"github.com/OpenTraceLab/motorctl/pkg/transport"
)

// Device simulates a controller in application mode. The exported fields
// hold its state and may be inspected or changed between requests.
type Device struct {
	recorder

	Product         names.Product
	SerialNumber    string
	FirmwareVersion uint16

	EEPROM    [settings.Size]byte
	RAM       [settings.Size]byte
	Variables protocol.Variables

	// Stuck makes reinitialization ignore the not-initialized marker, so
	// the device never reports itself initialized again.
	Stuck bool

	// BootloaderRequested is set by the start-bootloader request.
	BootloaderRequested bool

	// Reinitializations counts reinitialize requests.
	Reinitializations int
}

// NewDevice returns a simulated controller loaded with the factory defaults
// of product, with power applied and awaiting a command.
func NewDevice(product names.Product) *Device {
	d := &Device{
		Product:         product,
		SerialNumber:    "00000001",
		FirmwareVersion: 0x0105,
	}
	d.EEPROM = settings.Encode(settings.Defaults(product))
	d.RAM = d.EEPROM
	d.Variables = protocol.Variables{
		Input:              2048,
		Target:             2048,
		Feedback:           0,
		ScaledFeedback:     0,
		ErrorFlagsHalting:  1 << names.ErrorAwaitingCommand,
		ErrorFlagsOccurred: 1 << names.ErrorAwaitingCommand,
		VINVoltage:         12000,
		DeviceReset:        names.ResetPowerUp,
	}
	return d
}

// Settings decodes the simulated EEPROM.
func (d *Device) Settings() settings.Settings {
	s, _ := settings.Decode(d.Product, d.EEPROM[:])
	return s
}

func (d *Device) Control(dir transport.Direction, request uint8, value, index uint16, data []byte) (int, error) {
	if d.closes > 0 {
		return 0, errClosed
	}
	req := d.record(dir, request, value, index, data)
	if n, handled, err := d.hook(req, data); handled {
		return n, err
	}

	switch request {
	case protocol.ReqReinitialize:
		d.Reinitializations++
		if d.EEPROM[settings.OffsetNotInitialized] != 0 && !d.Stuck {
			d.EEPROM = settings.Encode(settings.Defaults(d.Product))
		}
		d.RAM = d.EEPROM
		return 0, nil

	case protocol.ReqSetEEPROMSettingByte:
		if int(index) >= settings.Size {
			return 0, Stall(request)
		}
		d.EEPROM[index] = byte(value)
		return 0, nil

	case protocol.ReqGetEEPROMSettings:
		return readSegment(request, d.EEPROM[:], index, data)

	case protocol.ReqGetRAMSettings:
		return readSegment(request, d.RAM[:], index, data)

	case protocol.ReqSetRAMSettings:
		if int(index)+len(data) > settings.Size {
			return 0, Stall(request)
		}
		return copy(d.RAM[index:], data), nil

	case protocol.ReqGetVariables:
		blob := protocol.EncodeVariables(d.Variables)
		n, err := readSegment(request, blob[:], index, data)
		if err != nil {
			return n, err
		}
		if value&protocol.GetVarsClearErrorsHalting != 0 {
			d.Variables.ErrorFlagsHalting = 0
		}
		if value&protocol.GetVarsClearErrorsOccurred != 0 {
			d.Variables.ErrorFlagsOccurred = 0
		}
		if value&protocol.GetVarsClearChoppingCount != 0 {
			d.Variables.CurrentChoppingOccurrence = 0
		}
		return n, nil

	case protocol.ReqSetTarget:
		if value > 4095 {
			return 0, Stall(request)
		}
		d.Variables.Target = value
		d.Variables.ForceMode = names.ForceModeNone
		d.run()
		return 0, nil

	case protocol.ReqMotorOff:
		d.Variables.ForceMode = names.ForceModeNone
		d.halt(names.ErrorAwaitingCommand)
		return 0, nil

	case protocol.ReqForceDutyCycleTarget:
		d.Variables.ForceMode = names.ForceModeDutyCycleTarget
		d.Variables.DutyCycleTarget = int16(value)
		d.run()
		return 0, nil

	case protocol.ReqForceDutyCycle:
		d.Variables.ForceMode = names.ForceModeDutyCycle
		d.Variables.DutyCycle = int16(value)
		d.run()
		return 0, nil

	case protocol.ReqGetDebugData:
		for i := range data {
			data[i] = byte(i)
		}
		return len(data), nil

	case protocol.ReqStartBootloader:
		d.BootloaderRequested = true
		return 0, nil
	}
	return 0, Stall(request)
}

// run clears the awaiting-command error, the only halting error a command
// can resolve by itself.
func (d *Device) run() {
	d.Variables.ErrorFlagsHalting &^= 1 << names.ErrorAwaitingCommand
}

func (d *Device) halt(bit uint16) {
	d.Variables.ErrorFlagsHalting |= 1 << bit
	d.Variables.ErrorFlagsOccurred |= 1 << bit
}

// Close marks the simulator closed; further requests fail as disconnected.
func (d *Device) Close() error {
	d.closes++
	return nil
}

func readSegment(request uint8, blob []byte, offset uint16, data []byte) (int, error) {
	if int(offset) >= len(blob) {
		return 0, Stall(request)
	}
	return copy(data, blob[offset:]), nil
}
