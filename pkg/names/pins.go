package names

import "slices"

// Pin indices, in settings and variables order.
const (
	PinSCL = 0
	PinSDA = 1
	PinTX  = 2
	PinRX  = 3
	PinRC  = 4
	PinAUX = 5
	PinFBA = 6
	PinFBT = 7
)

// PinCount is the number of configurable pins.
const PinCount = 8

// Pin functions.
const (
	PinFunctionDefault    = 0
	PinFunctionGeneral    = 1
	PinFunctionDigital    = 2
	PinFunctionAnalog     = 3
	PinFunctionOutputLow  = 4
	PinFunctionOutputHigh = 5
	PinFunctionSerial     = 6
	PinFunctionI2C        = 7
	PinFunctionRC         = 8
	PinFunctionPotPower   = 9
)

var pinNames = Table{
	{PinSCL, "scl"},
	{PinSDA, "sda"},
	{PinTX, "tx"},
	{PinRX, "rx"},
	{PinRC, "rc"},
	{PinAUX, "aux"},
	{PinFBA, "fba"},
	{PinFBT, "fbt"},
}

var pinFunctions = Table{
	{PinFunctionDefault, "default"},
	{PinFunctionGeneral, "general"},
	{PinFunctionDigital, "digital"},
	{PinFunctionAnalog, "analog"},
	{PinFunctionOutputLow, "output_low"},
	{PinFunctionOutputHigh, "output_high"},
	{PinFunctionSerial, "serial"},
	{PinFunctionI2C, "i2c"},
	{PinFunctionRC, "rc"},
	{PinFunctionPotPower, "pot_power"},
}

// pinCaps lists the functions each pin accepts and whether it has an analog
// input channel.
var pinCaps = [PinCount]struct {
	functions []uint16
	analog    bool
}{
	PinSCL: {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionI2C, PinFunctionPotPower}, false},
	PinSDA: {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionAnalog, PinFunctionI2C}, true},
	PinTX:  {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionAnalog, PinFunctionSerial}, true},
	PinRX:  {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionAnalog, PinFunctionSerial}, true},
	PinRC:  {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionRC}, false},
	PinAUX: {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionAnalog, PinFunctionOutputLow, PinFunctionOutputHigh}, true},
	PinFBA: {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital, PinFunctionAnalog}, true},
	PinFBT: {[]uint16{PinFunctionDefault, PinFunctionGeneral, PinFunctionDigital}, false},
}

func PinNames() Table     { return slices.Clone(pinNames) }
func PinFunctions() Table { return slices.Clone(pinFunctions) }

// PinName returns the lower-case name of a pin.
func PinName(pin int) string {
	n, _ := pinNames.Name(uint16(pin))
	return n
}

// PinFunctionAllowed reports whether fn may be assigned to pin.
func PinFunctionAllowed(pin int, fn uint8) bool {
	if pin < 0 || pin >= PinCount {
		return false
	}
	for _, f := range pinCaps[pin].functions {
		if f == uint16(fn) {
			return true
		}
	}
	return false
}

// PinHasAnalog reports whether pin has an analog input channel.
func PinHasAnalog(pin int) bool {
	return pin >= 0 && pin < PinCount && pinCaps[pin].analog
}
