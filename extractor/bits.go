package extractor

// PackBits packs a bit slice into bytes, LSB-first within each byte, zero
// padding the final byte. This is the byte order of the helper-data wire
// format and of the stable secret serialization.
func PackBits(bits []uint8) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b != 0 {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// UnpackBits expands bytes into a bit slice of the requested length,
// LSB-first within each byte.
func UnpackBits(data []byte, length int) []uint8 {
	out := make([]uint8, length)
	for i := 0; i < length && i/8 < len(data); i++ {
		out[i] = (data[i/8] >> (i % 8)) & 1
	}
	return out
}
