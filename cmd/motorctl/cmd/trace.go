package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/motorctl/pkg/trace"
)

var (
	traceFailed  bool
	traceRequest string
)

var traceCmd = &cobra.Command{
	Use:   "trace FILE",
	Short: "Print a transfer log written with --trace",
	Long: `Print the USB control transfers recorded in a trace file, one per line.

Examples:
  motorctl --trace session.cbor settings set settings.txt
  motorctl trace session.cbor
  motorctl trace --failed session.cbor          # Only failed transfers
  motorctl trace --request 0x81 session.cbor    # Only one request code`,
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(traceCmd)

	traceCmd.Flags().BoolVar(&traceFailed, "failed", false, "only show failed transfers")
	traceCmd.Flags().StringVar(&traceRequest, "request", "", "only show this request code")
}

func runTrace(cmd *cobra.Command, args []string) error {
	filter := trace.Filter{FailedOnly: traceFailed}
	if traceRequest != "" {
		v, err := strconv.ParseUint(traceRequest, 0, 8)
		if err != nil {
			return fmt.Errorf("invalid request code %q", traceRequest)
		}
		code := uint8(v)
		filter.Request = &code
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	events, err := trace.ReadFiltered(f, filter)
	out := cmd.OutOrStdout()
	for _, ev := range events {
		fmt.Fprintln(out, ev)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d transfer(s)\n", len(events))
	return nil
}
