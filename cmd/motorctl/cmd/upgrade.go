package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/bootloader"
)

var uploadType string

var upgradeCmd = &cobra.Command{
	Use:   "upgrade FILE",
	Short: "Write new firmware to the controller",
	Long: `Write a raw firmware binary to the controller's application flash.

The controller is switched to its bootloader first unless a bootloader is
already connected. FILE is written starting at the application address of
the bootloader; the last block is padded with 0xFF.

Examples:
  motorctl upgrade firmware.bin
  motorctl upgrade --upload-type plain firmware.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runUpgrade,
}

func init() {
	rootCmd.AddCommand(upgradeCmd)

	upgradeCmd.Flags().StringVar(&uploadType, "upload-type", "auto",
		"how the bootloader treats the data (auto, standard, device-specific, plain)")
}

func parseUploadType(s string) (bootloader.UploadType, error) {
	for _, u := range []bootloader.UploadType{
		bootloader.UploadAuto,
		bootloader.UploadStandard,
		bootloader.UploadDeviceSpecific,
		bootloader.UploadPlain,
	} {
		if u.String() == s {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown upload type %q", s)
}

func runUpgrade(cmd *cobra.Command, args []string) error {
	u, err := parseUploadType(uploadType)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read firmware: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("firmware file %s is empty", args[0])
	}

	h, err := openBootloader(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	typ := h.Type()
	img := bootloader.ImageFromBinary(data, typ.AppAddress, typ.WriteBlockSize)
	img.UploadType = u

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Writing %d bytes to %s\n", len(data), typ.Name)
	bar := newProgressBar(out)
	err = h.Update(img, bar.update)
	bar.finish()
	if err != nil {
		return fmt.Errorf("upgrade failed: %w", err)
	}
	if err := h.Restart(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Upgrade complete.")
	return nil
}
