package names

import "slices"

// Input modes.
const (
	InputModeSerial = 0
	InputModeAnalog = 1
	InputModeRC     = 2
)

// Input scaling degrees.
const (
	ScalingDegreeLinear    = 0
	ScalingDegreeQuadratic = 1
	ScalingDegreeCubic     = 2
)

// Feedback modes.
const (
	FeedbackModeNone      = 0
	FeedbackModeAnalog    = 1
	FeedbackModeFrequency = 2
)

// Serial modes.
const (
	SerialModeUSBDualPort = 0
	SerialModeUSBChained  = 1
	SerialModeUART        = 2
)

// PWM frequencies.
const (
	PWMFrequency20kHz = 0
	PWMFrequency5kHz  = 1
)

// Feedback-timing (FBT) measurement methods.
const (
	FBTMethodPulseCounting = 0
	FBTMethodPulseTiming   = 1
)

// Feedback-timing clocks.
const (
	FBTTimingClock1_5MHz = 0
	FBTTimingClock12MHz  = 1
)

// Force modes reported in the variables.
const (
	ForceModeNone            = 0
	ForceModeDutyCycleTarget = 1
	ForceModeDutyCycle       = 2
)

// Device reset causes reported in the variables.
const (
	ResetPowerUp   = 0x00
	ResetBrownout  = 0x01
	ResetPin       = 0x02
	ResetWatchdog  = 0x04
	ResetSoftware  = 0x08
	ResetStackFull = 0x40
	ResetUnderflow = 0x80
)

var (
	inputModes     = Table{{InputModeSerial, "serial"}, {InputModeAnalog, "analog"}, {InputModeRC, "rc"}}
	scalingDegrees = Table{{ScalingDegreeLinear, "linear"}, {ScalingDegreeQuadratic, "quadratic"}, {ScalingDegreeCubic, "cubic"}}
	feedbackModes  = Table{{FeedbackModeNone, "none"}, {FeedbackModeAnalog, "analog"}, {FeedbackModeFrequency, "frequency"}}
	serialModes    = Table{{SerialModeUSBDualPort, "usb_dual_port"}, {SerialModeUSBChained, "usb_chained"}, {SerialModeUART, "uart"}}
	pwmFrequencies = Table{{PWMFrequency20kHz, "20khz"}, {PWMFrequency5kHz, "5khz"}}
	fbtMethods     = Table{{FBTMethodPulseCounting, "pulse_counting"}, {FBTMethodPulseTiming, "pulse_timing"}}
	fbtClocks      = Table{{FBTTimingClock1_5MHz, "1.5mhz"}, {FBTTimingClock12MHz, "12mhz"}}
	forceModes     = Table{{ForceModeNone, "none"}, {ForceModeDutyCycleTarget, "duty_cycle_target"}, {ForceModeDutyCycle, "duty_cycle"}}
	resetCauses    = Table{
		{ResetPowerUp, "Power-on reset"},
		{ResetBrownout, "Brown-out reset"},
		{ResetPin, "Reset pin driven low"},
		{ResetWatchdog, "Watchdog reset"},
		{ResetSoftware, "Software reset (bootloader)"},
		{ResetStackFull, "Stack overflow"},
		{ResetUnderflow, "Stack underflow"},
	}
)

func InputModes() Table     { return slices.Clone(inputModes) }
func ScalingDegrees() Table { return slices.Clone(scalingDegrees) }
func FeedbackModes() Table  { return slices.Clone(feedbackModes) }
func SerialModes() Table    { return slices.Clone(serialModes) }
func PWMFrequencies() Table { return slices.Clone(pwmFrequencies) }
func FBTMethods() Table     { return slices.Clone(fbtMethods) }
func FBTClocks() Table      { return slices.Clone(fbtClocks) }
func ForceModes() Table     { return slices.Clone(forceModes) }

// ResetCause describes the device_reset variable.
func ResetCause(code uint8) string {
	n, _ := resetCauses.Name(uint16(code))
	return n
}
