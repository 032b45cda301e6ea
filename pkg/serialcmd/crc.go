package serialcmd

// crcTable holds CRC-7 (polynomial 0x91, reflected) for every byte value.
var crcTable = func() [256]byte {
	var t [256]byte
	for i := range t {
		crc := byte(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc ^= 0x91
			}
			crc >>= 1
		}
		t[i] = crc
	}
	return t
}()

// CRC7 returns the CRC-7 of msg.
func CRC7(msg []byte) byte {
	var crc byte
	for _, b := range msg {
		crc = crcTable[crc^b]
	}
	return crc
}
