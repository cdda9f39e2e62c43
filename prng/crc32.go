package prng

// CRC-32/ISO-HDLC, used as the string-to-seed hash and as the per-draw
// mixing function. The reflected polynomial and the final complement must
// match the canonical variant exactly or streams diverge across runtimes.
const crcPoly = 0xEDB88320

type crcTable struct {
	entries [256]uint32
}

var hashTable = makeTable(crcPoly)

func makeTable(poly uint32) *crcTable {
	t := &crcTable{}
	for i := uint32(0); i < 256; i++ {
		crc := i
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = poly ^ (crc >> 1)
			} else {
				crc >>= 1
			}
		}
		t.entries[i] = crc
	}
	return t
}

func update(crc uint32, p []byte) uint32 {
	for _, v := range p {
		crc = hashTable.entries[byte(crc)^v] ^ (crc >> 8)
	}
	return crc
}

// Hash32 returns the CRC-32 of s as an unsigned 32-bit value.
func Hash32(s string) uint32 {
	return update(0xffffffff, []byte(s)) ^ 0xffffffff
}
