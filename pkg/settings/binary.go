package settings

import (
	"encoding/binary"
	"fmt"

	"github.com/OpenTraceLab/motorctl/pkg/names"
)

// Encode serializes s into the device's little-endian settings layout. Fields
// that do not apply to s.Product are left zero, and the not-initialized
// marker at offset 0 is always clear.
func Encode(s Settings) [Size]byte {
	var buf [Size]byte
	for _, f := range applicable(s.Product) {
		writeRaw(buf[:], f, f.raw(f.Get(&s)))
	}
	for pin, cfg := range s.Pins {
		b := cfg.Function & pinFunctionMask
		if cfg.Pullup {
			b |= 1 << pinPullupBit
		}
		if cfg.Analog {
			b |= 1 << pinAnalogBit
		}
		buf[offsetPinConfig+pin] = b
	}
	return buf
}

// Decode parses a settings blob for product. The inverse of Encode for
// settings that have been through Fix.
func Decode(product names.Product, blob []byte) (Settings, error) {
	if len(blob) < Size {
		return Settings{}, fmt.Errorf("settings blob too short: got %d bytes, want %d", len(blob), Size)
	}
	s := New(product)
	for _, f := range applicable(product) {
		f.Set(&s, f.model(readRaw(blob, f)))
	}
	for pin := range s.Pins {
		b := blob[offsetPinConfig+pin]
		s.Pins[pin] = PinConfig{
			Function: b & pinFunctionMask,
			Pullup:   b&(1<<pinPullupBit) != 0,
			Analog:   b&(1<<pinAnalogBit) != 0,
		}
	}
	return s, nil
}

func writeRaw(buf []byte, f *Field, v int64) {
	switch f.Kind {
	case KindBit:
		if v != 0 {
			buf[f.Offset] |= 1 << f.Bit
		} else {
			buf[f.Offset] &^= 1 << f.Bit
		}
	case KindU8:
		buf[f.Offset] = uint8(v)
	case KindU16:
		binary.LittleEndian.PutUint16(buf[f.Offset:], uint16(v))
	case KindI16:
		binary.LittleEndian.PutUint16(buf[f.Offset:], uint16(int16(v)))
	}
}

func readRaw(buf []byte, f *Field) int64 {
	switch f.Kind {
	case KindBit:
		return int64(buf[f.Offset]>>f.Bit) & 1
	case KindU8:
		return int64(buf[f.Offset])
	case KindU16:
		return int64(binary.LittleEndian.Uint16(buf[f.Offset:]))
	case KindI16:
		return int64(int16(binary.LittleEndian.Uint16(buf[f.Offset:])))
	}
	return 0
}

// Diff returns the offsets in [1, Size) where a and b differ. Offset 0 is
// the not-initialized marker and is never reported.
func Diff(a, b [Size]byte) []int {
	var out []int
	for i := 1; i < Size; i++ {
		if a[i] != b[i] {
			out = append(out, i)
		}
	}
	return out
}

// DiffOverridable returns the contiguous span of the overridable region that
// covers every difference between a and b. ok is false when the region is
// unchanged.
func DiffOverridable(a, b [Size]byte) (start, end int, ok bool) {
	start, end = -1, -1
	for i := OverridableStart; i < OverridableEnd; i++ {
		if a[i] != b[i] {
			if start < 0 {
				start = i
			}
			end = i + 1
		}
	}
	return start, end, start >= 0
}
