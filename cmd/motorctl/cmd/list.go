package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List connected controllers and bootloaders",
	Long: `List every controller connected over USB, in application mode or
running its bootloader.

Examples:
  motorctl list
  motorctl --simulate 24v21 list`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	devs, err := listDevices(ctx)
	if err != nil {
		return err
	}
	boots, err := listBootloaders(ctx)
	if err != nil {
		return err
	}

	if len(devs) == 0 && len(boots) == 0 {
		fmt.Fprintln(out, "No devices found.")
		return nil
	}

	fmt.Fprintf(out, "%-10s %-30s %-9s %s\n", "Serial", "Product", "Firmware", "Location")
	for _, d := range devs {
		fmt.Fprintf(out, "%-10s %-30s %-9s %s\n", d.SerialNumber, d.Name(), d.FirmwareVersionString(), d.OSID)
	}
	for _, b := range boots {
		fmt.Fprintf(out, "%-10s %-30s %-9s %s\n", b.SerialNumber, b.Type.Name, "-", b.OSID)
	}
	return nil
}
