package device

import (
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

// Diagnose returns a one-line explanation of what the motor is doing and
// why. The first matching condition wins.
func Diagnose(v Variables) string {
	halting := v.ErrorFlagsHalting
	has := func(bit uint16) bool { return halting&(1<<bit) != 0 }

	switch {
	case has(names.ErrorNoPower):
		return "Motor stopped: motor power is too low or not connected."
	case has(names.ErrorMotorDriver):
		return "Motor stopped: the motor driver reported an error."
	case has(names.ErrorInputInvalid):
		return "Motor stopped: the input is invalid."
	}

	for bit := uint16(names.ErrorInputDisconnect); bit < names.ErrorCount; bit++ {
		if has(bit) {
			return fmt.Sprintf("Motor stopped: %s error is active.", names.ErrorName(bit))
		}
	}

	switch {
	case has(names.ErrorAwaitingCommand):
		return "Motor stopped: the controller is waiting for a command."
	case v.ForceMode == names.ForceModeDutyCycleTarget:
		return fmt.Sprintf("Motor running with a forced duty cycle target of %d.", v.DutyCycleTarget)
	case v.ForceMode == names.ForceModeDutyCycle:
		return fmt.Sprintf("Motor running with a forced duty cycle of %d.", v.DutyCycle)
	case v.DutyCycle == 0:
		return "Motor stopped: the duty cycle is zero."
	}
	return "Motor running."
}
