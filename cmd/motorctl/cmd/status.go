package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/currentlimit"
	"github.com/OpenTraceLab/motorctl/pkg/device"
	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

var statusClearErrors bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the controller's variables and a diagnosis",
	Long: `Read the controller's variables and print them together with a one-line
explanation of why the motor is or is not running.

Examples:
  motorctl status
  motorctl status --clear-errors     # Also clear the errors-occurred flags`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusClearErrors, "clear-errors", false,
		"clear the errors-occurred flags after reading them")
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := openDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	var flags uint16
	if statusClearErrors {
		flags = device.ClearErrorsOccurred
	}
	v, err := h.GetVariables(flags)
	if err != nil {
		return err
	}
	ram, err := h.GetRAMSettings()
	if err != nil {
		return err
	}

	d := h.Device()
	out := cmd.OutOrStdout()
	row(out, "Name", "%s", d.Name())
	row(out, "Serial number", "%s", d.SerialNumber)
	row(out, "Firmware version", "%s", d.FirmwareVersionString())
	row(out, "Last reset", "%s", names.ResetCause(v.DeviceReset))
	row(out, "Up time", "%s", time.Duration(v.UpTime)*time.Millisecond)
	fmt.Fprintln(out)
	fmt.Fprintln(out, device.Diagnose(v))
	fmt.Fprintln(out)
	printVariables(out, v, &ram)
	return nil
}

func row(w io.Writer, label, format string, args ...any) {
	fmt.Fprintf(w, "%-32s "+format+"\n", append([]any{label + ":"}, args...)...)
}

// printVariables writes the variables one per line. s supplies the
// calibration for the current limit and may be nil.
func printVariables(w io.Writer, v protocol.Variables, s *settings.Settings) {
	forceMode, _ := names.ForceModes().Name(uint16(v.ForceMode))

	row(w, "Errors stopping the motor", "%s", names.ErrorFlagsString(v.ErrorFlagsHalting))
	row(w, "Errors that occurred", "%s", names.ErrorFlagsString(v.ErrorFlagsOccurred))
	row(w, "Force mode", "%s", forceMode)
	row(w, "Input", "%d", v.Input)
	row(w, "Target", "%d", v.Target)
	row(w, "Feedback", "%d", v.Feedback)
	row(w, "Scaled feedback", "%d", v.ScaledFeedback)
	row(w, "Integral", "%d", v.Integral)
	row(w, "Duty cycle target", "%d", v.DutyCycleTarget)
	row(w, "Duty cycle", "%d", v.DutyCycle)
	row(w, "Last duty cycle", "%d", v.LastDutyCycle)
	row(w, "VIN voltage", "%d mV", v.VINVoltage)
	row(w, "Current", "%d mA", v.Current)
	if s != nil && settings.HasHardCurrentLimit(s.Product) {
		row(w, "Hard current limit", "%d mA", currentlimit.Decode(s, v.EncodedHardCurrentLimit))
	}
	row(w, "Current chopping (consecutive)", "%d", v.CurrentChoppingConsecutive)
	row(w, "Current chopping (occurrences)", "%d", v.CurrentChoppingOccurrence)
	row(w, "PID period count", "%d", v.PIDPeriodCount)
	row(w, "PID period exceeded", "%t", v.PIDPeriodExceeded)
	row(w, "RC pulse width", "%d", v.RCPulseWidth)
	row(w, "FBT reading", "%d", v.FBTReading)

	fmt.Fprintln(w, "Pins:")
	for pin := range protocol.PinCount {
		level := "low"
		if v.DigitalReading(pin) {
			level = "high"
		}
		fmt.Fprintf(w, "  %-4s %-4s", names.PinName(pin), level)
		if names.PinHasAnalog(pin) {
			fmt.Fprintf(w, " analog %d", v.AnalogReadings[pin])
		}
		fmt.Fprintln(w)
	}
}
