package device

import (
	"fmt"
	"time"

	"github.com/OpenTraceLab/motorctl/pkg/protocol"
	"github.com/OpenTraceLab/motorctl/pkg/settings"
)

func (h *Handle) readSettingsBlob(op string, request uint8, start, end int) ([settings.Size]byte, error) {
	var blob [settings.Size]byte
	err := h.readBlob(op, request, 0, blob[:], start, end)
	return blob, err
}

func (h *Handle) decode(blob [settings.Size]byte) (settings.Settings, error) {
	s, err := settings.Decode(h.dev.Product, blob[:])
	if err != nil {
		return settings.Settings{}, err
	}
	s.FirmwareVersion = h.dev.FirmwareVersion
	return s, nil
}

func (h *Handle) checkProduct(s settings.Settings) error {
	if s.Product != h.dev.Product {
		return fmt.Errorf("%w: settings are for %s, device is %s", ErrProductMismatch, s.Product, h.dev.Product)
	}
	return nil
}

// GetEEPROMSettings reads the non-volatile settings.
func (h *Handle) GetEEPROMSettings() (settings.Settings, error) {
	blob, err := h.readSettingsBlob("get EEPROM settings", protocol.ReqGetEEPROMSettings, 0, settings.Size)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to read EEPROM settings: %w", err)
	}
	return h.decode(blob)
}

// SetEEPROMSettings fixes s and writes the bytes that differ from the
// device's EEPROM, one byte per request. The device uses them after the
// next Reinitialize. The fixer's warnings are returned.
func (h *Handle) SetEEPROMSettings(s settings.Settings) ([]string, error) {
	if err := h.checkProduct(s); err != nil {
		return nil, err
	}
	fixed, warnings := settings.Fix(s)
	want := settings.Encode(fixed)

	have, err := h.readSettingsBlob("get EEPROM settings", protocol.ReqGetEEPROMSettings, 0, settings.Size)
	if err != nil {
		return warnings, fmt.Errorf("failed to read EEPROM settings: %w", err)
	}
	changed := settings.Diff(have, want)
	for _, off := range changed {
		if err := h.command(protocol.ReqSetEEPROMSettingByte, uint16(want[off]), uint16(off)); err != nil {
			return warnings, fmt.Errorf("failed to write EEPROM setting byte 0x%02X: %w", off, err)
		}
	}
	h.log.Info("EEPROM settings written", "bytes", len(changed), "warnings", len(warnings))
	return warnings, nil
}

// GetRAMSettings reads the settings the device is currently using.
func (h *Handle) GetRAMSettings() (settings.Settings, error) {
	blob, err := h.readSettingsBlob("get RAM settings", protocol.ReqGetRAMSettings, 0, settings.Size)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to read RAM settings: %w", err)
	}
	return h.decode(blob)
}

// SetRAMSettings fixes s and writes it to RAM in whole segments. The change
// is lost on the next reinitialization.
func (h *Handle) SetRAMSettings(s settings.Settings) ([]string, error) {
	if err := h.checkProduct(s); err != nil {
		return nil, err
	}
	fixed, warnings := settings.Fix(s)
	blob := settings.Encode(fixed)
	if err := h.writeBlob("set RAM settings", protocol.ReqSetRAMSettings, blob[:], 0, settings.Size); err != nil {
		return warnings, fmt.Errorf("failed to write RAM settings: %w", err)
	}
	h.log.Info("RAM settings written", "warnings", len(warnings))
	return warnings, nil
}

// GetOverridableSettings reads only the overridable region of the RAM
// settings. Fields outside that region are left at zero.
func (h *Handle) GetOverridableSettings() (settings.Settings, error) {
	blob, err := h.readSettingsBlob("get RAM settings", protocol.ReqGetRAMSettings,
		settings.OverridableStart, settings.OverridableEnd)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to read overridable settings: %w", err)
	}
	return h.decode(blob)
}

// SetOverridableSettings fixes s and patches the part of the RAM
// overridable region that differs from the device.
func (h *Handle) SetOverridableSettings(s settings.Settings) ([]string, error) {
	if err := h.checkProduct(s); err != nil {
		return nil, err
	}
	fixed, warnings := settings.Fix(s)
	want := settings.Encode(fixed)

	have, err := h.readSettingsBlob("get RAM settings", protocol.ReqGetRAMSettings,
		settings.OverridableStart, settings.OverridableEnd)
	if err != nil {
		return warnings, fmt.Errorf("failed to read overridable settings: %w", err)
	}
	start, end, ok := settings.DiffOverridable(have, want)
	if !ok {
		return warnings, nil
	}
	if err := h.writeBlob("set RAM settings", protocol.ReqSetRAMSettings, want[:], start, end); err != nil {
		return warnings, fmt.Errorf("failed to write overridable settings: %w", err)
	}
	h.log.Debug("overridable settings patched", "start", start, "end", end)
	return warnings, nil
}

// RestoreDefaults marks the EEPROM settings uninitialized, reinitializes the
// device and waits for it to load its factory defaults. It returns an error
// wrapping ErrTimeout if the device does not report itself initialized
// before the deadline.
func (h *Handle) RestoreDefaults() error {
	if err := h.command(protocol.ReqSetEEPROMSettingByte, 1, settings.OffsetNotInitialized); err != nil {
		return fmt.Errorf("failed to mark settings uninitialized: %w", err)
	}
	if err := h.Reinitialize(); err != nil {
		return fmt.Errorf("failed to restore defaults: %w", err)
	}

	deadline := time.Now().Add(h.cfg.RestoreTimeout)
	marker := make([]byte, 1)
	for {
		time.Sleep(h.cfg.PollInterval)
		err := h.readSegment("get EEPROM settings", protocol.ReqGetEEPROMSettings, 0, settings.OffsetNotInitialized, marker)
		if err != nil {
			return fmt.Errorf("failed to restore defaults: %w", err)
		}
		if marker[0] == 0 {
			h.log.Info("default settings restored")
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("failed to restore defaults: %w waiting for the device to reinitialize", ErrTimeout)
		}
	}
}
