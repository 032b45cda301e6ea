package settings

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

func TestTextRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		p := allProducts[i%len(allProducts)]
		s, _ := Fix(randomSettings(r, p))

		got, err := FromText(ToText(s))
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestTextDropsFirmwareVersion(t *testing.T) {
	s := Defaults(names.Product18v19)
	s.FirmwareVersion = 0x0105

	text := ToText(s)
	assert.NotContains(t, text, "firmware")
	got, err := FromText(text)
	require.NoError(t, err)
	assert.Zero(t, got.FirmwareVersion)

	got.FirmwareVersion = s.FirmwareVersion
	assert.Equal(t, s, got)
}

func TestToTextFormat(t *testing.T) {
	s := Defaults(names.Product24v21)
	s.FeedbackMode = names.FeedbackModeAnalog
	s.ErrorEnable = 0x0010
	s.CurrentOffsetCalibration = -12
	s.Pins[names.PinRX] = PinConfig{Function: names.PinFunctionSerial, Pullup: true}

	text := ToText(s)
	lines := strings.Split(text, "\n")
	assert.Equal(t, "# Motor controller settings file.", lines[0])
	assert.Equal(t, "product: 24v21", lines[1])
	assert.Contains(t, text, "\nfeedback_mode: analog\n")
	assert.Contains(t, text, "\nerror_enable: 0x0010\n")
	assert.Contains(t, text, "\ncurrent_offset_calibration: -12\n")
	assert.Contains(t, text, "\nmotor_invert: false\n")
	assert.Contains(t, text, "\nrx_pin: serial pullup\n")
	assert.NotContains(t, text, "soft_current_regulation_level")
}

func TestFromTextProductAnywhereAndLastWins(t *testing.T) {
	text := `# comment
input_minimum: 10
input_minimum: 20   # trailing comment

product: 18v27
aux_pin: analog analog
`
	s, err := FromText(text)
	require.NoError(t, err)
	assert.Equal(t, names.Product18v27, s.Product)
	assert.Equal(t, uint16(20), s.InputMinimum)
	assert.Equal(t, PinConfig{Function: names.PinFunctionAnalog, Analog: true}, s.Pins[names.PinAUX])
	assert.Equal(t, Defaults(names.Product18v27).InputMaximum, s.InputMaximum)
}

func TestFromTextErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		line int
		msg  string
	}{
		{"missing product", "input_minimum: 1\n", 0, "product was not specified"},
		{"bad product", "product: 99v99\n", 1, "Unrecognized product"},
		{"unknown key", "product: 18v19\n\nfoo: 1\n", 3, "Unrecognized key"},
		{"bad bool", "product: 18v19\nmotor_invert: yes\n", 2, "expected true or false"},
		{"bad enum", "product: 18v19\ninput_mode: pwm\n", 2, "Unrecognized input_mode"},
		{"bad number", "product: 18v19\ninput_minimum: ten\n", 2, "Invalid input_minimum"},
		{"out of type range", "product: 18v19\ninput_minimum: 70000\n", 2, "out of range"},
		{"negative unsigned", "product: 18v19\npid_period: -1\n", 2, "out of range"},
		{"empty value", "product: 18v19\ninput_minimum:\n", 2, "is empty"},
		{"too long", "product: 18v19\ninput_minimum: " + strings.Repeat("1", 65) + "\n", 2, "too long"},
		{"two words", "product: 18v19\ninput_minimum: 1 2\n", 2, "single word"},
		{"not applicable", "product: 18v19\nsoft_current_regulation_level_forward: 5\n", 2, "not supported"},
		{"not applicable 21v3", "product: 21v3\nhard_overcurrent_threshold: 5\n", 2, "not supported"},
		{"bad pin function", "product: 18v19\nscl_pin: uart\n", 2, "Unrecognized scl_pin function"},
		{"bad pin flag", "product: 18v19\nscl_pin: default pulldown\n", 2, "Unrecognized scl_pin flag"},
		{"flow sequence", "product: 18v19\ninput_minimum: [1, 2]\n", 2, ""},
		{"missing colon", "product: 18v19\ninput_minimum 5\n", 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromText(tt.text)
			require.Error(t, err)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want *ParseError, got %T", err)
			assert.Equal(t, tt.line, perr.Line)
			if tt.msg != "" {
				assert.Contains(t, perr.Msg, tt.msg)
			}
		})
	}
}

func TestParseErrorString(t *testing.T) {
	assert.Equal(t, "line 4: boom", (&ParseError{Line: 4, Msg: "boom"}).Error())
	assert.Equal(t, "boom", (&ParseError{Msg: "boom"}).Error())
}
