package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductLookup(t *testing.T) {
	tests := []struct {
		short string
		usbID uint16
		want  Product
	}{
		{"18v19", 0x00C3, Product18v19},
		{"24v13", 0x00C5, Product24v13},
		{"18v27", 0x00BF, Product18v27},
		{"24v21", 0x00C1, Product24v21},
		{"21v3", 0x00B7, Product21v3},
	}
	for _, tt := range tests {
		p, ok := ProductFromShortName(tt.short)
		assert.True(t, ok)
		assert.Equal(t, tt.want, p)

		p, ok = ProductFromUSBID(tt.usbID)
		assert.True(t, ok)
		assert.Equal(t, tt.want, p)
		assert.Equal(t, tt.short, p.String())
	}

	_, ok := ProductFromUSBID(0x1234)
	assert.False(t, ok)
	assert.False(t, ProductUnknown.Valid())
	assert.Equal(t, "Product(9)", Product(9).String())

	info, ok := LookupProduct(Product(9))
	assert.False(t, ok)
	assert.Equal(t, Unknown, info.Name)
}

func TestTableLookups(t *testing.T) {
	n, ok := InputModes().Name(InputModeRC)
	assert.True(t, ok)
	assert.Equal(t, "rc", n)

	_, ok = InputModes().Name(7)
	assert.False(t, ok)

	code, ok := FBTClocks().Code("12MHz")
	assert.True(t, ok)
	assert.Equal(t, uint16(FBTTimingClock12MHz), code)

	assert.Equal(t, uint16(PinFunctionPotPower), PinFunctions().Max())
	assert.Equal(t, []string{"20khz", "5khz"}, PWMFrequencies().Names())
}

func TestTablesAreCopies(t *testing.T) {
	pins := PinNames()
	pins[0].Name = "x"
	fns := PinFunctions()
	fns[0].Code = 99
	modes := InputModes()
	modes[InputModeRC].Name = "x"

	assert.Equal(t, "scl", PinName(PinSCL))
	code, ok := PinNames().Code("scl")
	assert.True(t, ok)
	assert.Equal(t, uint16(PinSCL), code)
	assert.Equal(t, uint16(PinFunctionPotPower), PinFunctions().Max())
	n, _ := InputModes().Name(InputModeRC)
	assert.Equal(t, "rc", n)
}

func TestErrorNames(t *testing.T) {
	assert.Equal(t, "no_power", ErrorName(ErrorNoPower))
	assert.Equal(t, "Hard overcurrent", ErrorDescription(ErrorHardOvercurrent))
	assert.Equal(t, Unknown, ErrorDescription(15))
	assert.Equal(t, "none", ErrorFlagsString(0))
	assert.Equal(t, "awaiting_command, serial_crc", ErrorFlagsString(1<<ErrorAwaitingCommand|1<<ErrorSerialCRC))

	bit, ok := ErrorBitFromName("input_invalid")
	assert.True(t, ok)
	assert.Equal(t, uint16(ErrorInputInvalid), bit)
}

func TestBootloaderErrorDescription(t *testing.T) {
	d, ok := BootloaderErrorDescription(6)
	assert.True(t, ok)
	assert.Equal(t, "Address is not in the correct range.", d)

	d, ok = BootloaderErrorDescription(0xEE)
	assert.False(t, ok)
	assert.Equal(t, "Unknown error code.", d)
}

func TestPins(t *testing.T) {
	assert.Equal(t, "fbt", PinName(PinFBT))
	assert.True(t, PinFunctionAllowed(PinRX, PinFunctionSerial))
	assert.False(t, PinFunctionAllowed(PinRC, PinFunctionSerial))
	assert.False(t, PinFunctionAllowed(PinCount, PinFunctionDefault))
	assert.True(t, PinHasAnalog(PinAUX))
	assert.False(t, PinHasAnalog(PinSCL))
	assert.Equal(t, "Watchdog reset", ResetCause(ResetWatchdog))
}
