package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/motorctl/pkg/names"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

// execute runs the root command with args and returns everything written
// to stdout and stderr.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	// Reset flags to prevent accumulation between tests
	verbose = false
	serialFlag = ""
	simulate = ""
	tracePath = ""
	statusClearErrors = false
	settingsRAM = false
	settingsOutput = ""
	settingsNoReinit = false
	settingsProduct = ""
	dutyDirect = false
	limitsProduct = ""
	uploadType = "auto"
	traceFailed = false
	traceRequest = ""

	configPath = filepath.Join(t.TempDir(), "config.yaml")

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestDeviceCommandsE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "list",
			args: []string{"list"},
			wantContain: []string{
				"00000001",
				"Motor Controller G2 18v19",
				"1.05",
			},
		},
		{
			name: "status",
			args: []string{"status"},
			wantContain: []string{
				"Motor Controller G2 18v19",
				"Power-on reset",
				"Motor stopped: the controller is waiting for a command.",
				"awaiting_command",
				"12000 mV",
				"Hard current limit:",
				"Pins:",
			},
		},
		{
			name:        "status clearing errors",
			args:        []string{"status", "--clear-errors"},
			wantContain: []string{"Errors that occurred:"},
		},
		{
			name:        "target",
			args:        []string{"target", "3000"},
			wantContain: []string{"Target set to 3000."},
		},
		{
			name:    "target out of range",
			args:    []string{"target", "5000"},
			wantErr: true,
		},
		{
			name:        "stop",
			args:        []string{"stop"},
			wantContain: []string{"Motor stopped."},
		},
		{
			name:        "run",
			args:        []string{"run"},
			wantContain: []string{"Motor running."},
		},
		{
			name:        "duty target",
			args:        []string{"duty", "300"},
			wantContain: []string{"Duty cycle target forced to 300."},
		},
		{
			name:        "duty direct",
			args:        []string{"duty", "--direct", "--", "-200"},
			wantContain: []string{"Duty cycle forced to -200."},
		},
		{
			name:    "duty out of range",
			args:    []string{"duty", "700"},
			wantErr: true,
		},
		{
			name:        "clear errors",
			args:        []string{"clear-errors"},
			wantContain: []string{"Cleared errors: awaiting_command"},
		},
		{
			name:        "restore defaults",
			args:        []string{"restore-defaults"},
			wantContain: []string{"Default settings restored."},
		},
		{
			name: "settings get",
			args: []string{"settings", "get"},
			wantContain: []string{
				"# Motor controller settings file.",
				"product: 18v19",
				"max_duty_cycle_forward: 600",
			},
		},
		{
			name:        "settings get ram",
			args:        []string{"settings", "get", "--ram"},
			wantContain: []string{"product: 18v19"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--simulate", "18v19"}, tt.args...)
			output, err := execute(t, args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err, "output: %s", output)
			for _, want := range tt.wantContain {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestOfflineCommandsE2E(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "defaults",
			args:        []string{"settings", "defaults", "--product", "24v21"},
			wantContain: []string{"product: 24v21", "input_mode: serial"},
		},
		{
			name:    "defaults unknown product",
			args:    []string{"settings", "defaults", "--product", "99v99"},
			wantErr: true,
		},
		{
			name:        "current limits",
			args:        []string{"current-limits", "--product", "18v19"},
			wantContain: []string{"Code", "Limit (mA)"},
		},
		{
			name:    "current limits without hardware limit",
			args:    []string{"current-limits", "--product", "21v3"},
			wantErr: true,
		},
		{
			name: "bootloaders",
			args: []string{"bootloaders"},
			wantContain: []string{
				"Bootloader for Motor Controller G2 18v19",
				"1FFB:00C2",
				"1FFB:00B6",
				"0x002000-0x01FFFF",
			},
		},
		{
			name:    "unknown simulated product",
			args:    []string{"--simulate", "99v99", "list"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := execute(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err, "output: %s", output)
			for _, want := range tt.wantContain {
				assert.Contains(t, output, want)
			}
		})
	}
}

func TestSettingsFilesE2E(t *testing.T) {
	dir := t.TempDir()
	text := settings.ToText(settings.Defaults(names.Product18v19))
	tooHigh := strings.Replace(text, "max_duty_cycle_forward: 600", "max_duty_cycle_forward: 900", 1)
	require.NotEqual(t, text, tooHigh)

	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte(tooHigh), 0644))

	t.Run("fix to file", func(t *testing.T) {
		out := filepath.Join(dir, "fixed.txt")
		output, err := execute(t, "settings", "fix", in, out)
		require.NoError(t, err)
		assert.Contains(t, output, "Warning:")
		assert.Contains(t, output, "too high")

		fixed, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, text, string(fixed))
	})

	t.Run("set applies and warns", func(t *testing.T) {
		output, err := execute(t, "--simulate", "18v19", "settings", "set", in)
		require.NoError(t, err)
		assert.Contains(t, output, "too high")
		assert.Contains(t, output, "Settings written to EEPROM and applied.")
	})

	t.Run("set to ram", func(t *testing.T) {
		output, err := execute(t, "--simulate", "18v19", "settings", "set", "--ram", in)
		require.NoError(t, err)
		assert.Contains(t, output, "Settings written to RAM.")
	})

	t.Run("set for another product", func(t *testing.T) {
		_, err := execute(t, "--simulate", "24v13", "settings", "set", in)
		assert.Error(t, err)
	})

	t.Run("get to file", func(t *testing.T) {
		out := filepath.Join(dir, "saved.txt")
		_, err := execute(t, "--simulate", "18v19", "settings", "get", "-o", out)
		require.NoError(t, err)

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		s, err := settings.FromText(string(data))
		require.NoError(t, err)
		assert.Equal(t, names.Product18v19, s.Product)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := execute(t, "settings", "fix", filepath.Join(dir, "nope.txt"))
		assert.Error(t, err)
	})
}

func TestUpgradeE2E(t *testing.T) {
	dir := t.TempDir()
	firmware := filepath.Join(dir, "firmware.bin")
	data := bytes.Repeat([]byte{0x0C, 0x94, 0x00, 0x20}, 100)
	require.NoError(t, os.WriteFile(firmware, data, 0644))

	for _, product := range []string{"18v19", "21v3"} {
		t.Run(product, func(t *testing.T) {
			output, err := execute(t, "--simulate", product, "upgrade", firmware)
			require.NoError(t, err, "output: %s", output)
			assert.Contains(t, output, "Writing 400 bytes to Bootloader for Motor Controller G2 "+product)
			assert.Contains(t, output, "Erasing flash...")
			assert.Contains(t, output, "Writing flash...")
			assert.Contains(t, output, "Upgrade complete.")
		})
	}

	t.Run("unknown upload type", func(t *testing.T) {
		_, err := execute(t, "--simulate", "18v19", "upgrade", "--upload-type", "bogus", firmware)
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.bin")
		require.NoError(t, os.WriteFile(empty, nil, 0644))
		_, err := execute(t, "--simulate", "18v19", "upgrade", empty)
		assert.Error(t, err)
	})
}

func TestTraceE2E(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.cbor")

	_, err := execute(t, "--simulate", "18v19", "--trace", path, "target", "1000")
	require.NoError(t, err)
	_, err = execute(t, "--simulate", "18v19", "--trace", path, "status")
	require.NoError(t, err)

	output, err := execute(t, "trace", path)
	require.NoError(t, err)
	assert.Contains(t, output, "value=0x03E8")
	assert.Contains(t, output, "transfer(s)")

	output, err = execute(t, "trace", "--failed", path)
	require.NoError(t, err)
	assert.Contains(t, output, "0 transfer(s)")

	_, err = execute(t, "trace", "--request", "zz", path)
	assert.Error(t, err)
}

func TestSerialRequiresPortE2E(t *testing.T) {
	_, err := execute(t, "serial", "stop")
	assert.ErrorContains(t, err, "no serial port given")
}
