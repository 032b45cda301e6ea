package settings

import (
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

// AchievableBaudRate returns the baud rate the hardware actually generates
// when asked for baud. The input is clamped to [MinBaudRate, MaxBaudRate]
// first. The result is a fixed point: AchievableBaudRate(AchievableBaudRate(x))
// equals AchievableBaudRate(x).
func AchievableBaudRate(baud uint32) uint32 {
	x := int64(baud)
	if x < MinBaudRate {
		x = MinBaudRate
	}
	if x > MaxBaudRate {
		x = MaxBaudRate
	}
	return uint32(generatorToBaud(nearestGenerator(x)))
}

// nearestGenerator picks the generator whose exact rate F/g is closest to x.
// Ties go to the larger generator, which keeps the rounding half-up mapping
// from generator to baud stable.
func nearestGenerator(x int64) int64 {
	a := clampGenerator(BaudRateFactor / x)
	b := clampGenerator(BaudRateFactor/x + 1)
	if a == b {
		return a
	}
	// |F/a - x| <= |F/b - x|  <=>  |F - x*a| * b <= |F - x*b| * a
	da := abs64(BaudRateFactor-x*a) * b
	db := abs64(BaudRateFactor-x*b) * a
	if db <= da {
		return b
	}
	return a
}

func clampGenerator(g int64) int64 {
	if g < BaudGeneratorMin {
		return BaudGeneratorMin
	}
	if g > BaudGeneratorMax {
		return BaudGeneratorMax
	}
	return g
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

type warnings []string

func (w *warnings) add(format string, args ...any) {
	*w = append(*w, fmt.Sprintf(format, args...))
}

// Fix returns a copy of s with every field forced into its legal range and
// every cross-field rule satisfied, along with one human-readable warning per
// change. Fix is idempotent: fixing an already fixed value yields the same
// value and no warnings.
func Fix(s Settings) (Settings, []string) {
	var w warnings

	fixRanges(&s, &w)
	fixQuantization(&s, &w)
	fixDeviceNumber(&s, &w)
	fixBaudRate(&s, &w)
	fixInputScaling(&s, &w)
	fixOutputScaling(&s, &w)
	fixFeedbackScaling(&s, &w)
	fixErrorMasks(&s, &w)
	fixPins(&s, &w)

	return s, w
}

// fixRanges clamps each field to its product-specific bounds. Calibration
// bounds are product-specific, so this also covers the calibration rule.
func fixRanges(s *Settings, w *warnings) {
	for _, f := range applicable(s.Product) {
		if f.Kind == KindBit && f.Enum == nil {
			continue
		}
		lo, hi := f.Bounds(s.Product)
		v := f.Get(s)
		switch {
		case v > hi:
			f.Set(s, hi)
			w.add("The %s is too high so it will be changed to %d.", f.describe(), hi)
		case v < lo:
			f.Set(s, lo)
			w.add("The %s is too low so it will be changed to %d.", f.describe(), lo)
		}
	}
}

func fixQuantization(s *Settings, w *warnings) {
	roundUp := func(v *uint32, unit uint32, what string) {
		if r := *v % unit; r != 0 {
			*v += unit - r
			w.add("The %s will be rounded up to %d ms.", what, *v)
		}
	}
	roundUp(&s.BrakeDurationForward, BrakeDurationUnit, "brake duration forward")
	roundUp(&s.BrakeDurationReverse, BrakeDurationUnit, "brake duration reverse")
	roundUp(&s.SerialTimeout, SerialTimeoutUnit, "serial timeout")
}

func fixDeviceNumber(s *Settings, w *warnings) {
	mask := uint16(0x7F)
	if s.SerialEnable14BitDeviceNumber {
		mask = 0x3FFF
	}
	if v := s.SerialDeviceNumber & mask; v != s.SerialDeviceNumber {
		s.SerialDeviceNumber = v
		w.add("The serial device number is too high so it will be changed to %d.", v)
	}
}

func fixBaudRate(s *Settings, w *warnings) {
	if v := AchievableBaudRate(s.SerialBaudRate); v != s.SerialBaudRate {
		s.SerialBaudRate = v
		w.add("The serial baud rate will be changed to %d, the nearest rate the hardware can generate.", v)
	}
}

func fixInputScaling(s *Settings, w *warnings) {
	if s.InputErrorMinimum <= s.InputMinimum &&
		s.InputMinimum <= s.InputNeutralMinimum &&
		s.InputNeutralMinimum <= s.InputNeutralMaximum &&
		s.InputNeutralMaximum <= s.InputMaximum &&
		s.InputMaximum <= s.InputErrorMaximum {
		return
	}
	d := Defaults(s.Product)
	s.InputErrorMinimum = d.InputErrorMinimum
	s.InputErrorMaximum = d.InputErrorMaximum
	s.InputMinimum = d.InputMinimum
	s.InputMaximum = d.InputMaximum
	s.InputNeutralMinimum = d.InputNeutralMinimum
	s.InputNeutralMaximum = d.InputNeutralMaximum
	w.add("The input scaling values are out of order so they will be reset to their default values.")
}

func fixOutputScaling(s *Settings, w *warnings) {
	if s.OutputMinimum <= s.OutputNeutral && s.OutputNeutral <= s.OutputMaximum {
		return
	}
	d := Defaults(s.Product)
	s.OutputMinimum = d.OutputMinimum
	s.OutputNeutral = d.OutputNeutral
	s.OutputMaximum = d.OutputMaximum
	w.add("The output scaling values are out of order so they will be reset to their default values.")
}

func fixFeedbackScaling(s *Settings, w *warnings) {
	if s.FeedbackErrorMinimum <= s.FeedbackMinimum &&
		s.FeedbackMinimum <= s.FeedbackMaximum &&
		s.FeedbackMaximum <= s.FeedbackErrorMaximum {
		return
	}
	d := Defaults(s.Product)
	s.FeedbackErrorMinimum = d.FeedbackErrorMinimum
	s.FeedbackErrorMaximum = d.FeedbackErrorMaximum
	s.FeedbackMinimum = d.FeedbackMinimum
	s.FeedbackMaximum = d.FeedbackMaximum
	w.add("The feedback scaling values are out of order so they will be reset to their default values.")
}

// ConfigurableErrors returns the error bits product lets the user enable.
func ConfigurableErrors(product names.Product) uint16 {
	m := uint16(ErrorsConfigurable)
	if !HasHardCurrentLimit(product) {
		m &^= 1 << names.ErrorHardOvercurrent
	}
	return m
}

func fixErrorMasks(s *Settings, w *warnings) {
	if v := s.ErrorEnable & ConfigurableErrors(s.Product); v != s.ErrorEnable {
		s.ErrorEnable = v
		w.add("The error enable mask contains errors that cannot be configured so it will be changed to 0x%04X.", v)
	}
	if v := s.ErrorLatch & s.ErrorEnable; v != s.ErrorLatch {
		s.ErrorLatch = v
		w.add("The error latch mask contains errors that are not enabled so it will be changed to 0x%04X.", v)
	}
	if v := s.ErrorHard & s.ErrorEnable; v != s.ErrorHard {
		s.ErrorHard = v
		w.add("The error hard mask contains errors that are not enabled so it will be changed to 0x%04X.", v)
	}
}

func fixPins(s *Settings, w *warnings) {
	for pin := range s.Pins {
		cfg := &s.Pins[pin]
		name := names.PinName(pin)
		if !names.PinFunctionAllowed(pin, cfg.Function) {
			cfg.Function = names.PinFunctionDefault
			w.add("The %s pin function is not valid so it will be changed to default.", name)
		}
		if cfg.Analog && !names.PinHasAnalog(pin) {
			cfg.Analog = false
			w.add("The %s pin does not support analog readings so the analog flag will be cleared.", name)
		}
	}
}
