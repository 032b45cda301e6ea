package bootloader

import "fmt"

// UploadType selects how the bootloader interprets the flash data it
// receives. The zero value picks one from the bootloader's capabilities.
type UploadType uint8

const (
	UploadAuto UploadType = iota
	UploadStandard
	UploadDeviceSpecific
	UploadPlain
)

func (u UploadType) String() string {
	switch u {
	case UploadAuto:
		return "auto"
	case UploadStandard:
		return "standard"
	case UploadDeviceSpecific:
		return "device-specific"
	case UploadPlain:
		return "plain"
	}
	return fmt.Sprintf("UploadType(%d)", uint8(u))
}

// wire returns the value sent with the initialize request.
func (u UploadType) wire() uint16 {
	return uint16(u - 1)
}

// Block is one chunk of firmware at an image address.
type Block struct {
	Address uint32
	Data    []byte
}

// Image is a firmware image: an upload type and an ordered list of blocks.
type Image struct {
	UploadType UploadType
	Blocks     []Block
}

// Size returns the total number of data bytes in the image.
func (img Image) Size() int {
	n := 0
	for _, b := range img.Blocks {
		n += len(b.Data)
	}
	return n
}

// ImageFromBinary splits raw bytes into blockSize chunks starting at base.
// The final chunk is padded with 0xFF.
func ImageFromBinary(data []byte, base uint32, blockSize int) Image {
	var img Image
	for off := 0; off < len(data); off += blockSize {
		block := make([]byte, blockSize)
		n := copy(block, data[off:])
		for i := n; i < blockSize; i++ {
			block[i] = 0xFF
		}
		img.Blocks = append(img.Blocks, Block{Address: base + uint32(off), Data: block})
	}
	return img
}

// Validate checks that every block fits the bootloader t: flash blocks must
// lie inside the application region and be at most one write block long,
// and EEPROM blocks must lie inside the image-terms EEPROM window.
func (img Image) Validate(t Type) error {
	if img.UploadType > UploadPlain {
		return fmt.Errorf("invalid upload type %s", img.UploadType)
	}
	if len(img.Blocks) == 0 {
		return fmt.Errorf("image has no blocks")
	}
	for i, b := range img.Blocks {
		switch {
		case t.inEEPROMImage(b.Address, len(b.Data)):
		case !t.inApp(b.Address, len(b.Data)):
			return fmt.Errorf("block %d at 0x%06X is outside the application region", i, b.Address)
		case len(b.Data) > t.WriteBlockSize:
			return fmt.Errorf("block %d at 0x%06X is %d bytes, more than the %d byte write block",
				i, b.Address, len(b.Data), t.WriteBlockSize)
		}
	}
	return nil
}
