package bootloader

import "fmt"

// Update writes img to the device: it initializes the bootloader, erases
// flash, erases the EEPROM marker when the erase left EEPROM alone, and
// writes every block in image order. The first failure aborts the update;
// nothing written so far is rolled back. Restart is left to the caller.
func (h *Handle) Update(img Image, progress ProgressFunc) error {
	if err := img.Validate(h.typ); err != nil {
		return fmt.Errorf("invalid firmware image: %w", err)
	}
	h.log.Info("starting firmware update", "blocks", len(img.Blocks), "bytes", img.Size())

	report(progress, "Initializing bootloader...", 0, 1)
	if err := h.Initialize(img.UploadType); err != nil {
		return err
	}

	if err := h.EraseFlash(progress); err != nil {
		return err
	}

	if h.typ.SupportsEEPROMAccess && !h.typ.EraseFlashErasesEEPROM {
		report(progress, "Erasing EEPROM...", 0, 1)
		if err := h.EraseEEPROMMarker(); err != nil {
			return err
		}
		report(progress, "Erasing EEPROM...", 1, 1)
	}

	total := len(img.Blocks)
	report(progress, "Writing flash...", 0, total)
	for i, b := range img.Blocks {
		if h.typ.inEEPROMImage(b.Address, len(b.Data)) {
			offset := int(b.Address - h.typ.EEPROMAddressImage)
			if err := h.WriteEEPROM(offset, b.Data); err != nil {
				return err
			}
		} else if err := h.WriteFlashBlock(b.Address, b.Data); err != nil {
			return err
		}
		report(progress, "Writing flash...", i+1, total)
	}

	h.log.Info("firmware update written")
	return nil
}
