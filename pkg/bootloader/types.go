// Package bootloader updates controller firmware through the USB
// bootloader: it knows the memory layout of every bootloader variant and
// runs the initialize, erase, write and restart sequence.
package bootloader

import "github.com/OpenTraceLab/motorctl/pkg/names"

// Type describes one bootloader variant. Addresses are in device terms
// unless noted.
type Type struct {
	Name      string
	Product   names.Product // product whose firmware it accepts
	VendorID  uint16
	ProductID uint16

	AppAddress     uint32
	AppSize        uint32
	WriteBlockSize int

	EEPROMAddress      uint32
	EEPROMAddressImage uint32 // where EEPROM contents appear in a firmware image
	EEPROMSize         int

	// DeviceCode, when set, is sent before initializing so the bootloader
	// can reject firmware built for a different device.
	DeviceCode string

	SupportsEEPROMAccess   bool
	SupportsWritingFlash   bool
	SupportsReadingFlash   bool
	EraseFlashErasesEEPROM bool
}

const (
	appAddress         = 0x2000
	appSize            = 0x1E000
	writeBlockSize     = 64
	eepromAddress      = 0xF000
	eepromAddressImage = 0xF00000
	eepromSize         = 256
)

func standardType(p names.Product, pid uint16) Type {
	info, _ := names.LookupProduct(p)
	return Type{
		Name:                 "Bootloader for " + info.Name,
		Product:              p,
		VendorID:             names.VendorID,
		ProductID:            pid,
		AppAddress:           appAddress,
		AppSize:              appSize,
		WriteBlockSize:       writeBlockSize,
		EEPROMAddress:        eepromAddress,
		EEPROMAddressImage:   eepromAddressImage,
		EEPROMSize:           eepromSize,
		SupportsEEPROMAccess: true,
	}
}

var types = func() []Type {
	t21v3 := standardType(names.Product21v3, 0x00B6)
	t21v3.DeviceCode = "mc21v3"
	t21v3.SupportsWritingFlash = true
	t21v3.SupportsReadingFlash = true
	t21v3.EraseFlashErasesEEPROM = true

	return []Type{
		standardType(names.Product18v19, 0x00C2),
		standardType(names.Product24v13, 0x00C4),
		standardType(names.Product18v27, 0x00BE),
		standardType(names.Product24v21, 0x00C0),
		t21v3,
	}
}()

// Types returns every known bootloader variant.
func Types() []Type {
	return append([]Type(nil), types...)
}

// LookupType finds the bootloader variant with the given USB IDs.
func LookupType(vid, pid uint16) (Type, bool) {
	for _, t := range types {
		if t.VendorID == vid && t.ProductID == pid {
			return t, true
		}
	}
	return Type{}, false
}

// TypeForProduct finds the bootloader variant that updates product.
func TypeForProduct(p names.Product) (Type, bool) {
	for _, t := range types {
		if t.Product == p {
			return t, true
		}
	}
	return Type{}, false
}

// IsBootloader reports whether vid/pid identify a known bootloader.
func IsBootloader(vid, pid uint16) bool {
	_, ok := LookupType(vid, pid)
	return ok
}

// DefaultUploadType is the upload type used when an image leaves it unset.
func (t Type) DefaultUploadType() UploadType {
	if t.SupportsWritingFlash {
		return UploadPlain
	}
	return UploadStandard
}

// inApp reports whether [addr, addr+n) lies inside application flash.
func (t Type) inApp(addr uint32, n int) bool {
	return addr >= t.AppAddress && uint64(addr)+uint64(n) <= uint64(t.AppAddress)+uint64(t.AppSize)
}

// inEEPROMImage reports whether [addr, addr+n) lies inside the image-terms
// EEPROM window.
func (t Type) inEEPROMImage(addr uint32, n int) bool {
	return t.SupportsEEPROMAccess && addr >= t.EEPROMAddressImage &&
		uint64(addr)+uint64(n) <= uint64(t.EEPROMAddressImage)+uint64(t.EEPROMSize)
}
