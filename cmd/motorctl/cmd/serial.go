package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/serialcmd"
)

var (
	serialPort         string
	serialBaud         int
	serialDeviceNumber int
	serialCRC          bool
	serial14Bit        bool
)

var serialCmd = &cobra.Command{
	Use:   "serial",
	Short: "Send commands over a TTL or USB virtual serial port",
	Long: `Control a controller through its serial command protocol instead of
native USB requests. The compact protocol is used unless --device-number is
given. --crc and --14bit must match the controller's serial settings.

Defaults for --port and --baud come from the config file.

Examples:
  motorctl serial ports
  motorctl serial --port /dev/ttyACM0 target 3200
  motorctl serial --port /dev/ttyUSB0 --device-number 14 --crc status`,
}

var serialTargetCmd = &cobra.Command{
	Use:   "target VALUE",
	Short: "Set the target (0 to 4095)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSerialTarget,
}

var serialStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the motor",
	Args:  cobra.NoArgs,
	RunE: withSerial(func(cmd *cobra.Command, c *serialcmd.Conn) error {
		if err := c.StopMotor(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Motor stopped.")
		return nil
	}),
}

var serialStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Read the variables over the serial port",
	Args:  cobra.NoArgs,
	RunE: withSerial(func(cmd *cobra.Command, c *serialcmd.Conn) error {
		v, err := c.GetVariables()
		if err != nil {
			return err
		}
		printVariables(cmd.OutOrStdout(), v, nil)
		return nil
	}),
}

var serialPortsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List the serial ports on this system",
	Args:  cobra.NoArgs,
	RunE:  runSerialPorts,
}

func init() {
	rootCmd.AddCommand(serialCmd)
	serialCmd.AddCommand(serialTargetCmd, serialStopCmd, serialStatusCmd, serialPortsCmd)

	serialCmd.PersistentFlags().StringVarP(&serialPort, "port", "p", "", "serial port device")
	serialCmd.PersistentFlags().IntVarP(&serialBaud, "baud", "b", 9600, "baud rate")
	serialCmd.PersistentFlags().IntVar(&serialDeviceNumber, "device-number", -1,
		"use the addressed protocol with this device number")
	serialCmd.PersistentFlags().BoolVar(&serialCRC, "crc", false, "append and check CRC-7 bytes")
	serialCmd.PersistentFlags().BoolVar(&serial14Bit, "14bit", false, "send 14-bit device numbers")
}

func serialOptions() []serialcmd.Option {
	opts := []serialcmd.Option{serialcmd.WithLogger(logger)}
	if serialDeviceNumber >= 0 {
		opts = append(opts, serialcmd.WithDeviceNumber(uint16(serialDeviceNumber)))
	}
	if serial14Bit {
		opts = append(opts, serialcmd.With14BitDeviceNumber())
	}
	if serialCRC {
		opts = append(opts, serialcmd.WithCRC())
	}
	return opts
}

// withSerial opens the configured serial port around fn.
func withSerial(fn func(cmd *cobra.Command, c *serialcmd.Conn) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		port, baud := serialPort, serialBaud
		if !cmd.Flags().Changed("port") {
			port = cfg.SerialPort
		}
		if !cmd.Flags().Changed("baud") && cfg.SerialBaud != 0 {
			baud = cfg.SerialBaud
		}
		if port == "" {
			return errors.New("no serial port given, use --port or set serial_port in the config file")
		}

		c, err := serialcmd.Open(port, baud, serialOptions()...)
		if err != nil {
			return err
		}
		defer c.Close()
		return fn(cmd, c)
	}
}

func runSerialTarget(cmd *cobra.Command, args []string) error {
	target, err := strconv.ParseUint(args[0], 0, 16)
	if err != nil || target > 4095 {
		return fmt.Errorf("invalid target %q: must be 0 to 4095", args[0])
	}
	return withSerial(func(cmd *cobra.Command, c *serialcmd.Conn) error {
		if err := c.SetTarget(uint16(target)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Target set to %d.\n", target)
		return nil
	})(cmd, args)
}

func runSerialPorts(cmd *cobra.Command, args []string) error {
	ports, err := serialcmd.Ports()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	out := cmd.OutOrStdout()
	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found.")
		return nil
	}
	for _, p := range ports {
		fmt.Fprintln(out, p)
	}
	return nil
}
