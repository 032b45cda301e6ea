// Package settings holds the controller configuration record, its
// field-descriptor table, the validator/fixer, and the binary and text codecs.
package settings

import "github.com/OpenTraceLab/motorctl/pkg/names"

// Blob layout constants.
const (
	// Size is the total size of the settings blob in device memory.
	Size = 0x80

	// OffsetNotInitialized holds a non-zero value when the device should
	// load its factory defaults on the next reinitialization.
	OffsetNotInitialized = 0x00

	offsetOptionsByte1 = 0x01
	offsetOptionsByte2 = 0x02
	offsetFBTOptions   = 0x33
	offsetPinConfig    = 0x40

	// OverridableStart and OverridableEnd delimit the region that can be
	// patched in RAM independently of EEPROM (PID gains and motor limits).
	OverridableStart = 0x50
	OverridableEnd   = 0x77
)

// Pin configuration byte layout.
const (
	pinFunctionMask = 0x0F
	pinPullupBit    = 6
	pinAnalogBit    = 7
)

// Baud-rate generator constants. The hardware divides BaudRateFactor by an
// integer generator value in [BaudGeneratorMin, BaudGeneratorMax].
const (
	BaudRateFactor   = 12000000
	BaudGeneratorMin = 104
	BaudGeneratorMax = 40000
	MinBaudRate      = 300
	MaxBaudRate      = 115385
)

// Time quantization of stored fields, in milliseconds per stored unit.
const (
	BrakeDurationUnit = 5
	SerialTimeoutUnit = 10
)

// Error masks. Errors in ErrorsAlwaysEnabled cannot be disabled, so they are
// never part of the configurable masks.
const (
	ErrorsAlwaysEnabled = 1<<names.ErrorAwaitingCommand | 1<<names.ErrorNoPower |
		1<<names.ErrorMotorDriver | 1<<names.ErrorInputInvalid
	ErrorsAll          = 1<<names.ErrorCount - 1
	ErrorsConfigurable = ErrorsAll &^ ErrorsAlwaysEnabled
)

// PinConfig is the configuration of one general-purpose pin.
type PinConfig struct {
	Function uint8
	Pullup   bool
	Analog   bool
}

// Settings is the full configuration record of a controller. It is a plain
// value; copies are independent.
type Settings struct {
	Product names.Product

	// FirmwareVersion is the BCD firmware version the settings were read
	// from, or 0 when unknown.
	FirmwareVersion uint16

	InputInvert                   bool
	InputDetectDisconnect         bool
	FeedbackInvert                bool
	FeedbackDetectDisconnect      bool
	FeedbackWraparound            bool
	SerialEnableCRC               bool
	SerialEnable14BitDeviceNumber bool
	SerialDisableCompactProtocol  bool
	NeverSleep                    bool
	MotorInvert                   bool
	CoastWhenOff                  bool
	ResetIntegral                 bool

	InputMode                  uint8
	InputErrorMinimum          uint16
	InputErrorMaximum          uint16
	InputMinimum               uint16
	InputMaximum               uint16
	InputNeutralMinimum        uint16
	InputNeutralMaximum        uint16
	OutputMinimum              uint16
	OutputNeutral              uint16
	OutputMaximum              uint16
	InputScalingDegree         uint8
	InputAnalogSamplesExponent uint8

	FeedbackMode                  uint8
	FeedbackErrorMinimum          uint16
	FeedbackErrorMaximum          uint16
	FeedbackMinimum               uint16
	FeedbackMaximum               uint16
	FeedbackDeadZone              uint8
	FeedbackAnalogSamplesExponent uint8

	SerialMode         uint8
	SerialBaudRate     uint32 // baud
	SerialTimeout      uint32 // ms
	SerialDeviceNumber uint16

	LoopInterval             uint8 // ms
	PWMFrequency             uint8
	CurrentSamplesExponent   uint8
	HardOvercurrentThreshold uint8
	CurrentOffsetCalibration int16
	CurrentScaleCalibration  int16

	FBTMethod          uint8
	FBTTimingClock     uint8
	FBTTimingPolarity  bool
	FBTTimingTimeout   uint16 // ms
	FBTAveragingCount  uint8
	FBTDividerExponent uint8

	ErrorEnable uint16
	ErrorLatch  uint16
	ErrorHard   uint16

	VINCalibration   int16
	I2CDeviceAddress uint8
	PIDPeriod        uint16 // ms

	// PID coefficients are multiplier / 2^exponent.
	ProportionalMultiplier uint16
	ProportionalExponent   uint8
	IntegralMultiplier     uint16
	IntegralExponent       uint8
	DerivativeMultiplier   uint16
	DerivativeExponent     uint8
	IntegralLimit          uint16

	// Duty cycles and accelerations use units where 600 means 100%.
	MaxDutyCycleWhileFeedbackOutOfRange uint16
	MaxAccelerationForward              uint16
	MaxAccelerationReverse              uint16
	MaxDecelerationForward              uint16
	MaxDecelerationReverse              uint16
	MaxDutyCycleForward                 uint16
	MaxDutyCycleReverse                 uint16

	EncodedHardCurrentLimitForward uint16
	EncodedHardCurrentLimitReverse uint16

	BrakeDurationForward uint32 // ms
	BrakeDurationReverse uint32 // ms

	SoftCurrentLimitForward           uint16 // mA
	SoftCurrentLimitReverse           uint16 // mA
	SoftCurrentRegulationLevelForward uint16 // mA
	SoftCurrentRegulationLevelReverse uint16 // mA

	Pins [names.PinCount]PinConfig
}

// New returns settings for product with every field zero.
func New(product names.Product) Settings {
	return Settings{Product: product}
}

// Defaults returns the factory settings of product.
func Defaults(product names.Product) Settings {
	s := New(product)

	s.InputMode = names.InputModeSerial
	s.InputErrorMinimum = 0
	s.InputErrorMaximum = 4095
	s.InputMinimum = 0
	s.InputMaximum = 4095
	s.InputNeutralMinimum = 2048
	s.InputNeutralMaximum = 2048
	s.OutputMinimum = 0
	s.OutputNeutral = 2048
	s.OutputMaximum = 4095
	s.InputScalingDegree = names.ScalingDegreeLinear
	s.InputAnalogSamplesExponent = 7

	s.FeedbackMode = names.FeedbackModeNone
	s.FeedbackErrorMinimum = 0
	s.FeedbackErrorMaximum = 4095
	s.FeedbackMinimum = 0
	s.FeedbackMaximum = 4095
	s.FeedbackAnalogSamplesExponent = 7

	s.SerialMode = names.SerialModeUSBDualPort
	s.SerialBaudRate = 9600
	s.SerialDeviceNumber = 11

	s.LoopInterval = 1
	s.PWMFrequency = names.PWMFrequency20kHz
	s.CurrentSamplesExponent = 7
	if product != names.Product21v3 {
		s.HardOvercurrentThreshold = 1
	}

	s.FBTMethod = names.FBTMethodPulseCounting
	s.FBTTimingClock = names.FBTTimingClock1_5MHz
	s.FBTTimingTimeout = 100
	s.FBTAveragingCount = 1

	s.I2CDeviceAddress = 11
	s.PIDPeriod = 10
	s.IntegralLimit = 1000

	s.MaxDutyCycleWhileFeedbackOutOfRange = 600
	s.MaxAccelerationForward = 600
	s.MaxAccelerationReverse = 600
	s.MaxDecelerationForward = 600
	s.MaxDecelerationReverse = 600
	s.MaxDutyCycleForward = 600
	s.MaxDutyCycleReverse = 600

	code := defaultHardCurrentLimitCode(product)
	s.EncodedHardCurrentLimitForward = code
	s.EncodedHardCurrentLimitReverse = code

	return s
}

func defaultHardCurrentLimitCode(product names.Product) uint16 {
	switch product {
	case names.Product18v19:
		return 76
	case names.Product24v13:
		return 81
	case names.Product18v27, names.Product24v21:
		return 25
	}
	return 0
}

// HasHardCurrentLimit reports whether product has hardware current limiting.
func HasHardCurrentLimit(product names.Product) bool {
	return product.Valid() && product != names.Product21v3
}

// HasSoftCurrentRegulation reports whether product regulates current in
// software.
func HasSoftCurrentRegulation(product names.Product) bool {
	return product == names.Product21v3
}

// CalibrationBounds returns the allowed current offset and scale
// calibration ranges for product.
func CalibrationBounds(product names.Product) (offsetMin, offsetMax, scaleMin, scaleMax int16) {
	if product == names.Product21v3 {
		return -800, 800, -1875, 1875
	}
	return -400, 400, -1000, 1000
}

// ProportionalCoefficient returns the proportional gain as a real number.
func (s *Settings) ProportionalCoefficient() float64 {
	return coefficient(s.ProportionalMultiplier, s.ProportionalExponent)
}

// IntegralCoefficient returns the integral gain as a real number.
func (s *Settings) IntegralCoefficient() float64 {
	return coefficient(s.IntegralMultiplier, s.IntegralExponent)
}

// DerivativeCoefficient returns the derivative gain as a real number.
func (s *Settings) DerivativeCoefficient() float64 {
	return coefficient(s.DerivativeMultiplier, s.DerivativeExponent)
}

func coefficient(multiplier uint16, exponent uint8) float64 {
	return float64(multiplier) / float64(uint32(1)<<exponent)
}
