package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

var (
	settingsRAM      bool
	settingsOutput   string
	settingsNoReinit bool
	settingsProduct  string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read, write and check settings files",
	Long: `Exchange settings between a controller and text files.

Examples:
  motorctl settings get -o settings.txt       # Save the EEPROM settings
  motorctl settings get --ram                 # Show the settings in use
  motorctl settings set settings.txt          # Write and apply a file
  motorctl settings fix in.txt out.txt        # Correct a file offline
  motorctl settings defaults --product 24v21  # Print factory defaults`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Read the controller's settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set FILE",
	Short: "Write a settings file to the controller",
	Long: `Parse FILE, correct any invalid values, and write the result to the
controller's EEPROM. The controller is then reinitialized so the new
settings take effect. With --ram the settings go to RAM only and are lost
at the next reset.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSet,
}

var settingsFixCmd = &cobra.Command{
	Use:   "fix IN [OUT]",
	Short: "Correct invalid values in a settings file",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSettingsFix,
}

var settingsDefaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Print the factory default settings of a product",
	Args:  cobra.NoArgs,
	RunE:  runSettingsDefaults,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsFixCmd, settingsDefaultsCmd)

	settingsGetCmd.Flags().BoolVar(&settingsRAM, "ram", false, "read the settings in use instead of the EEPROM")
	settingsGetCmd.Flags().StringVarP(&settingsOutput, "output", "o", "", "write to this file instead of stdout")

	settingsSetCmd.Flags().BoolVar(&settingsRAM, "ram", false, "write to RAM only")
	settingsSetCmd.Flags().BoolVar(&settingsNoReinit, "no-reinit", false, "do not reinitialize after writing the EEPROM")

	settingsDefaultsCmd.Flags().StringVarP(&settingsProduct, "product", "p", "", "product short name, e.g. 18v19")
	settingsDefaultsCmd.MarkFlagRequired("product")
}

func writeText(w io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readSettingsFile(path string) (settings.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}
	s, err := settings.FromText(string(data))
	if err != nil {
		return settings.Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func printWarnings(w io.Writer, warnings []string) {
	for _, msg := range warnings {
		fmt.Fprintf(w, "Warning: %s\n", msg)
	}
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	h, err := openDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	get := h.GetEEPROMSettings
	if settingsRAM {
		get = h.GetRAMSettings
	}
	s, err := get()
	if err != nil {
		return err
	}
	return writeText(cmd.OutOrStdout(), settingsOutput, settings.ToText(s))
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	s, err := readSettingsFile(args[0])
	if err != nil {
		return err
	}

	h, err := openDevice(cmd.Context())
	if err != nil {
		return err
	}
	defer h.Close()

	out := cmd.OutOrStdout()
	if settingsRAM {
		warnings, err := h.SetRAMSettings(s)
		printWarnings(cmd.ErrOrStderr(), warnings)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Settings written to RAM.")
		return nil
	}

	warnings, err := h.SetEEPROMSettings(s)
	printWarnings(cmd.ErrOrStderr(), warnings)
	if err != nil {
		return err
	}
	if settingsNoReinit {
		fmt.Fprintln(out, "Settings written to EEPROM.")
		return nil
	}
	if err := h.Reinitialize(); err != nil {
		return err
	}
	fmt.Fprintln(out, "Settings written to EEPROM and applied.")
	return nil
}

func runSettingsFix(cmd *cobra.Command, args []string) error {
	s, err := readSettingsFile(args[0])
	if err != nil {
		return err
	}
	fixed, warnings := settings.Fix(s)
	printWarnings(cmd.ErrOrStderr(), warnings)

	var path string
	if len(args) == 2 {
		path = args[1]
	}
	return writeText(cmd.OutOrStdout(), path, settings.ToText(fixed))
}

func runSettingsDefaults(cmd *cobra.Command, args []string) error {
	p, ok := names.ProductFromShortName(settingsProduct)
	if !ok {
		return fmt.Errorf("unknown product %q", settingsProduct)
	}
	return writeText(cmd.OutOrStdout(), "", settings.ToText(settings.Defaults(p)))
}
