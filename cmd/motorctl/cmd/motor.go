package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/currentlimit"
	"github.com/OpenTraceLab/motorctl/pkg/device"
	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

var (
	dutyDirect    bool
	limitsProduct string
)

var targetCmd = &cobra.Command{
	Use:   "target VALUE",
	Short: "Set the serial input target (0 to 4095)",
	Long: `Set the target used when the input mode is serial. 2048 is neutral with
the default scaling.

Examples:
  motorctl target 3200`,
	Args: cobra.ExactArgs(1),
	RunE: runTarget,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the motor",
	Args:  cobra.NoArgs,
	RunE: withDevice(func(cmd *cobra.Command, h *device.Handle) error {
		if err := h.StopMotor(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Motor stopped.")
		return nil
	}),
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Clear the halting errors and resume the current target",
	Args:  cobra.NoArgs,
	RunE: withDevice(func(cmd *cobra.Command, h *device.Handle) error {
		if err := h.RunMotor(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Motor running.")
		return nil
	}),
}

var dutyCmd = &cobra.Command{
	Use:   "duty VALUE",
	Short: "Force the duty cycle (-600 to 600)",
	Long: `Override the duty cycle target computed from the input. With --direct
the duty cycle itself is set, bypassing acceleration limits.

Negative values need "--" before them.

Examples:
  motorctl duty 300
  motorctl duty --direct -- -150`,
	Args: cobra.ExactArgs(1),
	RunE: runDuty,
}

var clearErrorsCmd = &cobra.Command{
	Use:   "clear-errors",
	Short: "Clear the latched halting errors",
	Args:  cobra.NoArgs,
	RunE: withDevice(func(cmd *cobra.Command, h *device.Handle) error {
		flags, err := h.ClearErrors()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared errors: %s\n", names.ErrorFlagsString(flags))
		return nil
	}),
}

var restoreCmd = &cobra.Command{
	Use:   "restore-defaults",
	Short: "Restore the factory default settings",
	Args:  cobra.NoArgs,
	RunE: withDevice(func(cmd *cobra.Command, h *device.Handle) error {
		if err := h.RestoreDefaults(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Default settings restored.")
		return nil
	}),
}

var limitsCmd = &cobra.Command{
	Use:   "current-limits",
	Short: "List the recommended hard current limit codes of a product",
	Args:  cobra.NoArgs,
	RunE:  runLimits,
}

func init() {
	rootCmd.AddCommand(targetCmd, stopCmd, runCmd, dutyCmd, clearErrorsCmd, restoreCmd, limitsCmd)

	dutyCmd.Flags().BoolVar(&dutyDirect, "direct", false, "set the duty cycle instead of the duty cycle target")
	limitsCmd.Flags().StringVarP(&limitsProduct, "product", "p", "", "product short name, e.g. 18v19")
	limitsCmd.MarkFlagRequired("product")
}

// withDevice opens the selected device around fn.
func withDevice(fn func(cmd *cobra.Command, h *device.Handle) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		h, err := openDevice(cmd.Context())
		if err != nil {
			return err
		}
		defer h.Close()
		return fn(cmd, h)
	}
}

func runTarget(cmd *cobra.Command, args []string) error {
	target, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil || target > 4095 {
		return fmt.Errorf("invalid target %q: must be 0 to 4095", args[0])
	}
	return withDevice(func(cmd *cobra.Command, h *device.Handle) error {
		if err := h.SetTarget(uint16(target)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Target set to %d.\n", target)
		return nil
	})(cmd, args)
}

func runDuty(cmd *cobra.Command, args []string) error {
	duty, err := strconv.ParseInt(args[0], 0, 16)
	if err != nil || duty < -600 || duty > 600 {
		return fmt.Errorf("invalid duty cycle %q: must be -600 to 600", args[0])
	}
	return withDevice(func(cmd *cobra.Command, h *device.Handle) error {
		what := "Duty cycle target"
		set := h.ForceDutyCycleTarget
		if dutyDirect {
			what = "Duty cycle"
			set = h.ForceDutyCycle
		}
		if err := set(int16(duty)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s forced to %d.\n", what, duty)
		return nil
	})(cmd, args)
}

func runLimits(cmd *cobra.Command, args []string) error {
	p, ok := names.ProductFromShortName(limitsProduct)
	if !ok {
		return fmt.Errorf("unknown product %q", limitsProduct)
	}
	codes := currentlimit.RecommendedCodes(p)
	if len(codes) == 0 {
		return fmt.Errorf("the %s has no hard current limit", p)
	}

	s := settings.Defaults(p)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-6s %s\n", "Code", "Limit (mA)")
	for _, code := range codes {
		fmt.Fprintf(out, "%-6d %d\n", code, currentlimit.Decode(&s, code))
	}
	return nil
}
