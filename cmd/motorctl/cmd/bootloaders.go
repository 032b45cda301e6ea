package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/bootloader"
)

var bootloadersCmd = &cobra.Command{
	Use:   "bootloaders",
	Short: "List the supported bootloader types",
	Args:  cobra.NoArgs,
	RunE:  runBootloaders,
}

func init() {
	rootCmd.AddCommand(bootloadersCmd)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func runBootloaders(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-9s %-44s %-23s %-6s %s\n", "USB ID", "Name", "Application", "Block", "Reads flash")
	for _, t := range bootloader.Types() {
		fmt.Fprintf(out, "%04X:%04X %-44s 0x%06X-0x%06X %-6d %s\n",
			t.VendorID, t.ProductID, t.Name,
			t.AppAddress, t.AppAddress+t.AppSize-1, t.WriteBlockSize,
			yesNo(t.SupportsReadingFlash))
	}
	return nil
}
