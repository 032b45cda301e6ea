package settings

import (
	"math"
	"slices"
	"strings"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

// Kind is the storage type of a field inside the blob.
type Kind uint8

const (
	KindBit Kind = iota
	KindU8
	KindU16
	KindI16
)

// Width returns the number of blob bytes a field of this kind occupies.
func (k Kind) Width() int {
	switch k {
	case KindU16, KindI16:
		return 2
	}
	return 1
}

// Field describes one scalar setting: where it lives in the blob, how its
// model value maps to the stored value, and which values are legal.
type Field struct {
	Key         string
	Description string
	Offset      int
	Bit         uint8
	Kind        Kind
	Min, Max    int64

	// Unit is the number of model units per stored unit (e.g. 5 ms per
	// stored brake-duration count). Zero means 1.
	Unit int64

	// Enum names the legal values of enumerated fields.
	Enum names.Table

	// Hex selects hexadecimal output in the text format.
	Hex bool

	// Products restricts the field to some products. Nil means all.
	Products []names.Product

	bounds  func(names.Product) (int64, int64)
	toRaw   func(int64) int64
	fromRaw func(int64) int64
	ref     func(*Settings) any
}

// Overridable reports whether the field lives in the RAM-overridable region.
func (f *Field) Overridable() bool {
	return f.Offset >= OverridableStart && f.Offset < OverridableEnd
}

// AppliesTo reports whether product carries this field.
func (f *Field) AppliesTo(product names.Product) bool {
	if f.Products == nil {
		return true
	}
	for _, p := range f.Products {
		if p == product {
			return true
		}
	}
	return false
}

// Bounds returns the legal model-value range of the field for product.
func (f *Field) Bounds(product names.Product) (int64, int64) {
	if f.bounds != nil {
		return f.bounds(product)
	}
	return f.Min, f.Max
}

// Get returns the model value of the field in s.
func (f *Field) Get(s *Settings) int64 {
	switch p := f.ref(s).(type) {
	case *bool:
		if *p {
			return 1
		}
		return 0
	case *uint8:
		return int64(*p)
	case *uint16:
		return int64(*p)
	case *int16:
		return int64(*p)
	case *uint32:
		return int64(*p)
	}
	panic("settings: unsupported field type for " + f.Key)
}

// Set stores v into the field of s. The value is truncated to the model type.
func (f *Field) Set(s *Settings, v int64) {
	switch p := f.ref(s).(type) {
	case *bool:
		*p = v != 0
	case *uint8:
		*p = uint8(v)
	case *uint16:
		*p = uint16(v)
	case *int16:
		*p = int16(v)
	case *uint32:
		*p = uint32(v)
	default:
		panic("settings: unsupported field type for " + f.Key)
	}
}

// IsBool reports whether the model value is a boolean.
func (f *Field) IsBool() bool {
	_, ok := f.ref(&Settings{}).(*bool)
	return ok
}

// TypeRange returns the range representable by the model type.
func (f *Field) TypeRange() (int64, int64) {
	switch f.ref(&Settings{}).(type) {
	case *bool:
		return 0, 1
	case *uint8:
		return 0, math.MaxUint8
	case *uint16:
		return 0, math.MaxUint16
	case *int16:
		return math.MinInt16, math.MaxInt16
	case *uint32:
		return 0, math.MaxUint32
	}
	return 0, 0
}

func (f *Field) unit() int64 {
	if f.Unit <= 0 {
		return 1
	}
	return f.Unit
}

// raw converts a model value to its stored value.
func (f *Field) raw(v int64) int64 {
	if f.toRaw != nil {
		return f.toRaw(v)
	}
	return v / f.unit()
}

// model converts a stored value to its model value.
func (f *Field) model(raw int64) int64 {
	if f.fromRaw != nil {
		return f.fromRaw(raw)
	}
	return raw * f.unit()
}

func (f *Field) describe() string {
	if f.Description != "" {
		return f.Description
	}
	return strings.ReplaceAll(f.Key, "_", " ")
}

var (
	allButSoftRegulation = []names.Product{names.Product18v19, names.Product24v13, names.Product18v27, names.Product24v21}
	softRegulationOnly   = []names.Product{names.Product21v3}
)

func calibrationOffsetBounds(p names.Product) (int64, int64) {
	lo, hi, _, _ := CalibrationBounds(p)
	return int64(lo), int64(hi)
}

func calibrationScaleBounds(p names.Product) (int64, int64) {
	_, _, lo, hi := CalibrationBounds(p)
	return int64(lo), int64(hi)
}

func encodedCurrentLimitBounds(p names.Product) (int64, int64) {
	switch p {
	case names.Product18v27, names.Product24v21:
		return 0, 31
	}
	return 0, 95
}

func baudToGenerator(baud int64) int64 {
	if baud <= 0 {
		return BaudGeneratorMax
	}
	return (2*BaudRateFactor + baud) / (2 * baud)
}

func generatorToBaud(g int64) int64 {
	if g <= 0 {
		return 0
	}
	return (2*BaudRateFactor + g) / (2 * g)
}

// fields is the descriptor table, in blob order.
var fields = []Field{
	{Key: "input_invert", Offset: offsetOptionsByte1, Bit: 0, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.InputInvert }},
	{Key: "input_detect_disconnect", Offset: offsetOptionsByte1, Bit: 1, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.InputDetectDisconnect }},
	{Key: "feedback_invert", Offset: offsetOptionsByte1, Bit: 2, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.FeedbackInvert }},
	{Key: "feedback_detect_disconnect", Offset: offsetOptionsByte1, Bit: 3, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.FeedbackDetectDisconnect }},
	{Key: "feedback_wraparound", Offset: offsetOptionsByte1, Bit: 4, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.FeedbackWraparound }},
	{Key: "serial_enable_crc", Offset: offsetOptionsByte1, Bit: 5, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.SerialEnableCRC }},
	{Key: "serial_enable_14bit_device_number", Offset: offsetOptionsByte1, Bit: 6, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.SerialEnable14BitDeviceNumber }},
	{Key: "serial_disable_compact_protocol", Offset: offsetOptionsByte1, Bit: 7, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.SerialDisableCompactProtocol }},
	{Key: "never_sleep", Offset: offsetOptionsByte2, Bit: 0, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.NeverSleep }},
	{Key: "motor_invert", Offset: offsetOptionsByte2, Bit: 1, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.MotorInvert }},
	{Key: "coast_when_off", Offset: offsetOptionsByte2, Bit: 2, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.CoastWhenOff }},
	{Key: "reset_integral", Offset: offsetOptionsByte2, Bit: 3, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.ResetIntegral }},

	{Key: "input_mode", Offset: 0x03, Kind: KindU8, Max: 2, Enum: names.InputModes(),
		ref: func(s *Settings) any { return &s.InputMode }},
	{Key: "input_error_minimum", Offset: 0x04, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.InputErrorMinimum }},
	{Key: "input_error_maximum", Offset: 0x06, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.InputErrorMaximum }},
	{Key: "input_minimum", Offset: 0x08, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.InputMinimum }},
	{Key: "input_maximum", Offset: 0x0A, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.InputMaximum }},
	{Key: "input_neutral_minimum", Offset: 0x0C, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.InputNeutralMinimum }},
	{Key: "input_neutral_maximum", Offset: 0x0E, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.InputNeutralMaximum }},
	{Key: "output_minimum", Offset: 0x10, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.OutputMinimum }},
	{Key: "output_neutral", Offset: 0x12, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.OutputNeutral }},
	{Key: "output_maximum", Offset: 0x14, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.OutputMaximum }},
	{Key: "input_scaling_degree", Offset: 0x16, Kind: KindU8, Max: 2, Enum: names.ScalingDegrees(),
		ref: func(s *Settings) any { return &s.InputScalingDegree }},
	{Key: "input_analog_samples_exponent", Offset: 0x17, Kind: KindU8, Max: 10,
		ref: func(s *Settings) any { return &s.InputAnalogSamplesExponent }},

	{Key: "feedback_mode", Offset: 0x18, Kind: KindU8, Max: 2, Enum: names.FeedbackModes(),
		ref: func(s *Settings) any { return &s.FeedbackMode }},
	{Key: "feedback_error_minimum", Offset: 0x19, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.FeedbackErrorMinimum }},
	{Key: "feedback_error_maximum", Offset: 0x1B, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.FeedbackErrorMaximum }},
	{Key: "feedback_minimum", Offset: 0x1D, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.FeedbackMinimum }},
	{Key: "feedback_maximum", Offset: 0x1F, Kind: KindU16, Max: 4095,
		ref: func(s *Settings) any { return &s.FeedbackMaximum }},
	{Key: "feedback_dead_zone", Offset: 0x21, Kind: KindU8, Max: 255,
		ref: func(s *Settings) any { return &s.FeedbackDeadZone }},
	{Key: "feedback_analog_samples_exponent", Offset: 0x22, Kind: KindU8, Max: 10,
		ref: func(s *Settings) any { return &s.FeedbackAnalogSamplesExponent }},

	{Key: "serial_mode", Offset: 0x23, Kind: KindU8, Max: 2, Enum: names.SerialModes(),
		ref: func(s *Settings) any { return &s.SerialMode }},
	{Key: "serial_baud_rate", Offset: 0x24, Kind: KindU16, Min: MinBaudRate, Max: MaxBaudRate,
		toRaw: baudToGenerator, fromRaw: generatorToBaud,
		ref: func(s *Settings) any { return &s.SerialBaudRate }},
	{Key: "serial_timeout", Offset: 0x26, Kind: KindU16, Max: 0xFFFF * SerialTimeoutUnit, Unit: SerialTimeoutUnit,
		ref: func(s *Settings) any { return &s.SerialTimeout }},
	{Key: "serial_device_number", Offset: 0x28, Kind: KindU16, Max: 16383,
		ref: func(s *Settings) any { return &s.SerialDeviceNumber }},

	{Key: "loop_interval", Offset: 0x2A, Kind: KindU8, Min: 1, Max: 255,
		ref: func(s *Settings) any { return &s.LoopInterval }},
	{Key: "pwm_frequency", Offset: 0x2B, Kind: KindU8, Max: 1, Enum: names.PWMFrequencies(),
		ref: func(s *Settings) any { return &s.PWMFrequency }},
	{Key: "current_samples_exponent", Offset: 0x2C, Kind: KindU8, Max: 10,
		ref: func(s *Settings) any { return &s.CurrentSamplesExponent }},
	{Key: "hard_overcurrent_threshold", Offset: 0x2D, Kind: KindU8, Min: 1, Max: 255, Products: allButSoftRegulation,
		ref: func(s *Settings) any { return &s.HardOvercurrentThreshold }},
	{Key: "current_offset_calibration", Offset: 0x2E, Kind: KindI16, Min: -800, Max: 800, bounds: calibrationOffsetBounds,
		ref: func(s *Settings) any { return &s.CurrentOffsetCalibration }},
	{Key: "current_scale_calibration", Offset: 0x30, Kind: KindI16, Min: -1875, Max: 1875, bounds: calibrationScaleBounds,
		ref: func(s *Settings) any { return &s.CurrentScaleCalibration }},

	{Key: "fbt_method", Offset: 0x32, Kind: KindU8, Max: 1, Enum: names.FBTMethods(),
		ref: func(s *Settings) any { return &s.FBTMethod }},
	{Key: "fbt_timing_clock", Offset: offsetFBTOptions, Bit: 0, Kind: KindBit, Max: 1, Enum: names.FBTClocks(),
		ref: func(s *Settings) any { return &s.FBTTimingClock }},
	{Key: "fbt_timing_polarity", Offset: offsetFBTOptions, Bit: 1, Kind: KindBit, Max: 1,
		ref: func(s *Settings) any { return &s.FBTTimingPolarity }},
	{Key: "fbt_timing_timeout", Offset: 0x34, Kind: KindU16, Min: 1, Max: 60000,
		ref: func(s *Settings) any { return &s.FBTTimingTimeout }},
	{Key: "fbt_averaging_count", Offset: 0x36, Kind: KindU8, Min: 1, Max: 32,
		ref: func(s *Settings) any { return &s.FBTAveragingCount }},
	{Key: "fbt_divider_exponent", Offset: 0x37, Kind: KindU8, Max: 15,
		ref: func(s *Settings) any { return &s.FBTDividerExponent }},

	{Key: "error_enable", Offset: 0x38, Kind: KindU16, Max: 0xFFFF, Hex: true,
		ref: func(s *Settings) any { return &s.ErrorEnable }},
	{Key: "error_latch", Offset: 0x3A, Kind: KindU16, Max: 0xFFFF, Hex: true,
		ref: func(s *Settings) any { return &s.ErrorLatch }},
	{Key: "error_hard", Offset: 0x3C, Kind: KindU16, Max: 0xFFFF, Hex: true,
		ref: func(s *Settings) any { return &s.ErrorHard }},

	{Key: "vin_calibration", Offset: 0x3E, Kind: KindI16, Min: -500, Max: 500,
		ref: func(s *Settings) any { return &s.VINCalibration }},
	{Key: "i2c_device_address", Offset: 0x48, Kind: KindU8, Max: 127,
		ref: func(s *Settings) any { return &s.I2CDeviceAddress }},
	{Key: "pid_period", Offset: 0x49, Kind: KindU16, Min: 1, Max: 8191,
		ref: func(s *Settings) any { return &s.PIDPeriod }},

	{Key: "proportional_multiplier", Offset: 0x50, Kind: KindU16, Max: 1023,
		ref: func(s *Settings) any { return &s.ProportionalMultiplier }},
	{Key: "proportional_exponent", Offset: 0x52, Kind: KindU8, Max: 18,
		ref: func(s *Settings) any { return &s.ProportionalExponent }},
	{Key: "integral_multiplier", Offset: 0x53, Kind: KindU16, Max: 1023,
		ref: func(s *Settings) any { return &s.IntegralMultiplier }},
	{Key: "integral_exponent", Offset: 0x55, Kind: KindU8, Max: 18,
		ref: func(s *Settings) any { return &s.IntegralExponent }},
	{Key: "derivative_multiplier", Offset: 0x56, Kind: KindU16, Max: 1023,
		ref: func(s *Settings) any { return &s.DerivativeMultiplier }},
	{Key: "derivative_exponent", Offset: 0x58, Kind: KindU8, Max: 18,
		ref: func(s *Settings) any { return &s.DerivativeExponent }},
	{Key: "integral_limit", Offset: 0x59, Kind: KindU16, Max: 32767,
		ref: func(s *Settings) any { return &s.IntegralLimit }},
	{Key: "max_duty_cycle_while_feedback_out_of_range", Offset: 0x5B, Kind: KindU16, Min: 1, Max: 600,
		ref: func(s *Settings) any { return &s.MaxDutyCycleWhileFeedbackOutOfRange }},
	{Key: "max_acceleration_forward", Offset: 0x5D, Kind: KindU16, Min: 1, Max: 600,
		ref: func(s *Settings) any { return &s.MaxAccelerationForward }},
	{Key: "max_acceleration_reverse", Offset: 0x5F, Kind: KindU16, Min: 1, Max: 600,
		ref: func(s *Settings) any { return &s.MaxAccelerationReverse }},
	{Key: "max_deceleration_forward", Offset: 0x61, Kind: KindU16, Min: 1, Max: 600,
		ref: func(s *Settings) any { return &s.MaxDecelerationForward }},
	{Key: "max_deceleration_reverse", Offset: 0x63, Kind: KindU16, Min: 1, Max: 600,
		ref: func(s *Settings) any { return &s.MaxDecelerationReverse }},
	{Key: "max_duty_cycle_forward", Offset: 0x65, Kind: KindU16, Max: 600,
		ref: func(s *Settings) any { return &s.MaxDutyCycleForward }},
	{Key: "max_duty_cycle_reverse", Offset: 0x67, Kind: KindU16, Max: 600,
		ref: func(s *Settings) any { return &s.MaxDutyCycleReverse }},
	{Key: "encoded_hard_current_limit_forward", Offset: 0x69, Kind: KindU16, Max: 95,
		bounds: encodedCurrentLimitBounds, Products: allButSoftRegulation,
		ref: func(s *Settings) any { return &s.EncodedHardCurrentLimitForward }},
	{Key: "encoded_hard_current_limit_reverse", Offset: 0x6B, Kind: KindU16, Max: 95,
		bounds: encodedCurrentLimitBounds, Products: allButSoftRegulation,
		ref: func(s *Settings) any { return &s.EncodedHardCurrentLimitReverse }},
	{Key: "brake_duration_forward", Offset: 0x6D, Kind: KindU8, Max: 0xFF * BrakeDurationUnit, Unit: BrakeDurationUnit,
		ref: func(s *Settings) any { return &s.BrakeDurationForward }},
	{Key: "brake_duration_reverse", Offset: 0x6E, Kind: KindU8, Max: 0xFF * BrakeDurationUnit, Unit: BrakeDurationUnit,
		ref: func(s *Settings) any { return &s.BrakeDurationReverse }},
	{Key: "soft_current_limit_forward", Offset: 0x6F, Kind: KindU16, Max: 0xFFFF,
		ref: func(s *Settings) any { return &s.SoftCurrentLimitForward }},
	{Key: "soft_current_limit_reverse", Offset: 0x71, Kind: KindU16, Max: 0xFFFF,
		ref: func(s *Settings) any { return &s.SoftCurrentLimitReverse }},
	{Key: "soft_current_regulation_level_forward", Offset: 0x73, Kind: KindU16, Max: 0xFFFF, Products: softRegulationOnly,
		ref: func(s *Settings) any { return &s.SoftCurrentRegulationLevelForward }},
	{Key: "soft_current_regulation_level_reverse", Offset: 0x75, Kind: KindU16, Max: 0xFFFF, Products: softRegulationOnly,
		ref: func(s *Settings) any { return &s.SoftCurrentRegulationLevelReverse }},
}

// Fields returns a copy of the descriptor table in blob order.
func Fields() []Field {
	out := make([]Field, len(fields))
	for i := range fields {
		out[i] = fields[i].clone()
	}
	return out
}

// FieldByKey looks up a descriptor by its settings-file key.
func FieldByKey(key string) (Field, bool) {
	if f := fieldByKey(key); f != nil {
		return f.clone(), true
	}
	return Field{}, false
}

// FieldsFor returns copies of the descriptors that apply to product.
func FieldsFor(product names.Product) []Field {
	var out []Field
	for _, f := range applicable(product) {
		out = append(out, f.clone())
	}
	return out
}

func fieldByKey(key string) *Field {
	for i := range fields {
		if fields[i].Key == key {
			return &fields[i]
		}
	}
	return nil
}

func applicable(product names.Product) []*Field {
	var out []*Field
	for i := range fields {
		if fields[i].AppliesTo(product) {
			out = append(out, &fields[i])
		}
	}
	return out
}

func (f *Field) clone() Field {
	c := *f
	c.Enum = slices.Clone(f.Enum)
	c.Products = slices.Clone(f.Products)
	return c
}
