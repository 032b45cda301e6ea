package settings

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

var allProducts = []names.Product{
	names.Product18v19,
	names.Product24v13,
	names.Product18v27,
	names.Product24v21,
	names.Product21v3,
}

// randomSettings fills every applicable field with a random value from its
// model type, most of which are out of range.
func randomSettings(r *rand.Rand, product names.Product) Settings {
	s := New(product)
	for _, f := range FieldsFor(product) {
		lo, hi := f.TypeRange()
		if hi-lo > 1<<20 {
			hi = lo + 1<<20
		}
		f.Set(&s, lo+r.Int63n(hi-lo+1))
	}
	for pin := range s.Pins {
		s.Pins[pin] = PinConfig{
			Function: uint8(r.Intn(16)),
			Pullup:   r.Intn(2) == 1,
			Analog:   r.Intn(2) == 1,
		}
	}
	return s
}

func TestDefaultsAreFixed(t *testing.T) {
	for _, p := range allProducts {
		t.Run(p.String(), func(t *testing.T) {
			d := Defaults(p)
			fixed, warnings := Fix(d)
			assert.Empty(t, warnings)
			assert.Equal(t, d, fixed)
		})
	}
}

func TestDefaultsProductSpecific(t *testing.T) {
	d := Defaults(names.Product21v3)
	assert.Zero(t, d.HardOvercurrentThreshold)
	assert.Zero(t, d.EncodedHardCurrentLimitForward)

	d = Defaults(names.Product18v19)
	assert.Equal(t, uint8(1), d.HardOvercurrentThreshold)
	assert.Equal(t, uint32(9600), d.SerialBaudRate)
	assert.Equal(t, uint16(11), d.SerialDeviceNumber)
	assert.Equal(t, uint16(2048), d.InputNeutralMinimum)
}

func TestAchievableBaudRate(t *testing.T) {
	tests := []struct {
		in, want uint32
	}{
		{0, 300},
		{300, 300},
		{9600, 9600},
		{115200, 115385},
		{115385, 115385},
		{1000000, 115385},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AchievableBaudRate(tt.in), "AchievableBaudRate(%d)", tt.in)
	}
}

func TestAchievableBaudRateIsFixedPoint(t *testing.T) {
	for x := uint32(MinBaudRate - 10); x <= MaxBaudRate+10; x++ {
		b := AchievableBaudRate(x)
		require.GreaterOrEqual(t, b, uint32(MinBaudRate))
		require.LessOrEqual(t, b, uint32(MaxBaudRate))
		require.Equal(t, b, AchievableBaudRate(b), "not idempotent for %d", x)
	}
}

func TestFixScenarios(t *testing.T) {
	s := Defaults(names.Product18v19)
	s.ProportionalMultiplier = 1024
	fixed, warnings := Fix(s)
	assert.Equal(t, uint16(1023), fixed.ProportionalMultiplier)
	assert.Equal(t, []string{"The proportional multiplier is too high so it will be changed to 1023."}, warnings)

	s = Defaults(names.Product18v19)
	s.ProportionalMultiplier = 2000
	fixed, warnings = Fix(s)
	assert.Equal(t, uint16(1023), fixed.ProportionalMultiplier)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "too high")

	s = Defaults(names.Product18v19)
	s.BrakeDurationForward = 7
	fixed, warnings = Fix(s)
	assert.Equal(t, uint32(10), fixed.BrakeDurationForward)
	assert.Len(t, warnings, 1)

	s = Defaults(names.Product18v19)
	s.SerialDeviceNumber = 200
	fixed, warnings = Fix(s)
	assert.Equal(t, uint16(72), fixed.SerialDeviceNumber)
	assert.Len(t, warnings, 1)

	s.SerialEnable14BitDeviceNumber = true
	fixed, warnings = Fix(s)
	assert.Equal(t, uint16(200), fixed.SerialDeviceNumber)
	assert.Empty(t, warnings)
}

func TestFixCalibrationBoundsPerProduct(t *testing.T) {
	s := Defaults(names.Product18v19)
	s.CurrentOffsetCalibration = 600
	fixed, _ := Fix(s)
	assert.Equal(t, int16(400), fixed.CurrentOffsetCalibration)

	s = Defaults(names.Product21v3)
	s.CurrentOffsetCalibration = 600
	s.CurrentScaleCalibration = -2000
	fixed, _ = Fix(s)
	assert.Equal(t, int16(600), fixed.CurrentOffsetCalibration)
	assert.Equal(t, int16(-1875), fixed.CurrentScaleCalibration)
}

func TestFixOrderingResetsGroup(t *testing.T) {
	s := Defaults(names.Product24v13)
	s.InputMinimum = 3000
	s.InputMaximum = 1000
	s.OutputNeutral = 10
	s.OutputMinimum = 20
	fixed, warnings := Fix(s)
	d := Defaults(names.Product24v13)
	assert.Equal(t, d.InputMinimum, fixed.InputMinimum)
	assert.Equal(t, d.InputMaximum, fixed.InputMaximum)
	assert.Equal(t, d.OutputNeutral, fixed.OutputNeutral)
	assert.Len(t, warnings, 2)
}

func TestFixErrorMasks(t *testing.T) {
	s := Defaults(names.Product21v3)
	s.ErrorEnable = 0xFFFF
	s.ErrorLatch = 0xFFFF
	s.ErrorHard = 0x0001
	fixed, _ := Fix(s)
	assert.Equal(t, ConfigurableErrors(names.Product21v3), fixed.ErrorEnable)
	assert.Zero(t, fixed.ErrorEnable&(1<<names.ErrorHardOvercurrent))
	assert.Equal(t, fixed.ErrorEnable, fixed.ErrorLatch)
	assert.Zero(t, fixed.ErrorHard)
}

func TestFixPins(t *testing.T) {
	s := Defaults(names.Product18v27)
	s.Pins[names.PinSCL] = PinConfig{Function: names.PinFunctionSerial, Analog: true, Pullup: true}
	s.Pins[names.PinFBA] = PinConfig{Function: names.PinFunctionAnalog, Analog: true}
	fixed, warnings := Fix(s)
	assert.Equal(t, PinConfig{Function: names.PinFunctionDefault, Pullup: true}, fixed.Pins[names.PinSCL])
	assert.Equal(t, s.Pins[names.PinFBA], fixed.Pins[names.PinFBA])
	assert.Len(t, warnings, 2)
}

func TestFixIsIdempotentAndInRange(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		p := allProducts[i%len(allProducts)]
		once, _ := Fix(randomSettings(r, p))
		twice, warnings := Fix(once)
		require.Equal(t, once, twice)
		require.Empty(t, warnings)

		for _, f := range FieldsFor(p) {
			lo, hi := f.Bounds(p)
			v := f.Get(&once)
			require.True(t, v >= lo && v <= hi, "%s=%d outside [%d, %d]", f.Key, v, lo, hi)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		p := allProducts[i%len(allProducts)]
		s, _ := Fix(randomSettings(r, p))
		blob := Encode(s)
		assert.Zero(t, blob[OffsetNotInitialized])

		got, err := Decode(p, blob[:])
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestEncodeLayout(t *testing.T) {
	s := Defaults(names.Product18v19)
	s.InputInvert = true
	s.MotorInvert = true
	s.SerialTimeout = 1000
	s.BrakeDurationReverse = 25
	s.CurrentOffsetCalibration = -2
	s.Pins[names.PinAUX] = PinConfig{Function: names.PinFunctionAnalog, Pullup: true, Analog: true}

	blob := Encode(s)
	assert.Equal(t, byte(0x01), blob[0x01])
	assert.Equal(t, byte(0x02), blob[0x02])
	assert.Equal(t, []byte{0xE2, 0x04}, blob[0x24:0x26]) // 1250
	assert.Equal(t, []byte{100, 0}, blob[0x26:0x28])
	assert.Equal(t, []byte{0xFE, 0xFF}, blob[0x2E:0x30])
	assert.Equal(t, byte(5), blob[0x6E])
	assert.Equal(t, byte(0xC3), blob[0x40+names.PinAUX])
}

func TestDecodeShortBlob(t *testing.T) {
	_, err := Decode(names.Product18v19, make([]byte, 10))
	assert.Error(t, err)
}

func TestDiff(t *testing.T) {
	a := Encode(Defaults(names.Product18v19))
	b := a
	b[0] = 1
	assert.Empty(t, Diff(a, b))

	b[0x10] = 0xAA
	b[0x52] = 3
	b[0x6E] = 9
	assert.Equal(t, []int{0x10, 0x52, 0x6E}, Diff(a, b))

	start, end, ok := DiffOverridable(a, b)
	require.True(t, ok)
	assert.Equal(t, 0x52, start)
	assert.Equal(t, 0x6F, end)

	_, _, ok = DiffOverridable(a, a)
	assert.False(t, ok)
}

func TestFieldTable(t *testing.T) {
	seen := map[string]bool{}
	for _, f := range Fields() {
		assert.False(t, seen[f.Key], "duplicate key %s", f.Key)
		seen[f.Key] = true
		assert.LessOrEqual(t, f.Offset+f.Kind.Width(), Size)
	}

	f, ok := FieldByKey("proportional_multiplier")
	require.True(t, ok)
	assert.True(t, f.Overridable())

	f, ok = FieldByKey("input_mode")
	require.True(t, ok)
	assert.False(t, f.Overridable())

	f, _ = FieldByKey("soft_current_regulation_level_forward")
	assert.True(t, f.AppliesTo(names.Product21v3))
	assert.False(t, f.AppliesTo(names.Product18v19))
}

func TestFieldTableCopies(t *testing.T) {
	s := Defaults(names.Product18v19)
	s.ProportionalMultiplier = 100
	wantBlob := Encode(s)

	all := Fields()
	for i := range all {
		all[i].Max = 5
		all[i].Offset = 0
		for j := range all[i].Enum {
			all[i].Enum[j].Name = "x"
		}
	}
	f, ok := FieldByKey("proportional_multiplier")
	require.True(t, ok)
	f.Max = 5

	fixed, warnings := Fix(s)
	assert.Empty(t, warnings)
	assert.Equal(t, uint16(100), fixed.ProportionalMultiplier)
	assert.Equal(t, wantBlob, Encode(s))

	text := ToText(s)
	assert.Contains(t, text, "input_mode: serial\n")
	back, err := FromText(text)
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestCoefficients(t *testing.T) {
	s := Settings{ProportionalMultiplier: 3, ProportionalExponent: 2}
	assert.InDelta(t, 0.75, s.ProportionalCoefficient(), 1e-9)
}
