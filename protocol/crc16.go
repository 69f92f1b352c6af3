package protocol

// CRC16 calculates the CRC16 checksum used by the checked tile trailer.
// This is the CCITT variant Klipper uses for its message blocks.
func CRC16(data []byte) uint16 {
	return CRC16Update(0xFFFF, data)
}

// CRC16Update continues a CRC16 over data, so a payload received in chunks
// can be checked without keeping it around.
func CRC16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		b = b ^ uint8(crc&0xFF)
		b = b ^ (b << 4)
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}
