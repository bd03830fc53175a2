package digest

import "hash"

// CRC-16-CCITT parameters.
const (
	// CRC16Polynomial is the CRC-16-CCITT polynomial (0x1021)
	CRC16Polynomial = 0x1021

	// CRC16InitialValue is the CRC-16 initial value
	CRC16InitialValue = 0xFFFF

	// CRC16HighBitMask is the high bit mask for CRC-16 calculations
	CRC16HighBitMask = 0x8000

	// CRC16Size is the digest size in bytes
	CRC16Size = 2
)

// crc16 is a streaming CRC-16-CCITT (no reflection, no final XOR).
// It is an integrity check only and must not back a signature.
type crc16 struct {
	crc uint16
}

// NewCRC16 returns a streaming CRC-16-CCITT. Sum appends the CRC big-endian.
func NewCRC16() hash.Hash {
	return &crc16{crc: CRC16InitialValue}
}

func (c *crc16) Write(p []byte) (int, error) {
	crc := c.crc
	for _, b := range p {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&CRC16HighBitMask != 0 {
				crc = (crc << 1) ^ CRC16Polynomial
			} else {
				crc <<= 1
			}
		}
	}
	c.crc = crc
	return len(p), nil
}

func (c *crc16) Sum(b []byte) []byte {
	return append(b, byte(c.crc>>8), byte(c.crc))
}

func (c *crc16) Reset() { c.crc = CRC16InitialValue }

func (c *crc16) Size() int { return CRC16Size }

func (c *crc16) BlockSize() int { return 1 }
