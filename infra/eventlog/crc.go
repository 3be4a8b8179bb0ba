package eventlog

import (
	"encoding/binary"
	"hash/crc32"
)

func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func CRC32Valid(data []byte, sum uint32) bool {
	return CRC32(data) == sum
}

// appendCRC frames payload as [payload][crc:4].
func appendCRC(payload []byte) []byte {
	return binary.BigEndian.AppendUint32(payload, CRC32(payload))
}

// splitCRC undoes appendCRC and verifies the checksum.
func splitCRC(b []byte) ([]byte, bool) {
	if len(b) < 4 {
		return nil, false
	}
	payload := b[:len(b)-4]
	sum := binary.BigEndian.Uint32(b[len(b)-4:])
	return payload, CRC32Valid(payload, sum)
}
