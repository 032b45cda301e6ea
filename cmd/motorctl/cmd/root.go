package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/internal/config"
)

var (
	// Global flags
	verbose    bool
	serialFlag string
	simulate   string
	tracePath  string
	configPath string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "motorctl",
	Short: "Motor controller configuration and control utility",
	Long: `Configure, control and upgrade USB motor controllers.

Settings are exchanged as text files, one "key: value" per line. Every
command that talks to a device accepts --serial to pick one when several are
connected, and --simulate to run against an in-memory controller instead.

Examples:
  motorctl list                                  # List connected controllers
  motorctl status                                # Show variables and diagnosis
  motorctl settings get -o settings.txt          # Save the EEPROM settings
  motorctl settings set settings.txt             # Apply a settings file
  motorctl target 3200                           # Drive with a serial target
  motorctl upgrade firmware.bin                  # Write new firmware
  motorctl --simulate 18v19 status               # Try it without hardware`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&serialFlag, "serial", "d", "",
		"serial number of the device to use")
	rootCmd.PersistentFlags().StringVar(&simulate, "simulate", "",
		"simulate a controller of this product (18v19, 24v13, 18v27, 24v21, 21v3)")
	rootCmd.PersistentFlags().StringVar(&tracePath, "trace", "",
		"append every USB control transfer to this CBOR file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file (default ~/.config/motorctl/config.yaml)")
}

// setup loads the config file, applies flag overrides and builds the logger.
func setup(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		p, err := config.Path()
		if err != nil {
			return fmt.Errorf("failed to locate config file: %w", err)
		}
		path = p
	}
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("serial") {
		c.Serial = serialFlag
	}
	if flags.Changed("simulate") {
		c.Simulate = simulate
	}
	if flags.Changed("trace") {
		c.Trace = tracePath
	}

	level, err := c.Level()
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	cfg = c
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}
