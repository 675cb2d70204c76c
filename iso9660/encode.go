package iso9660

import (
	"encoding/binary"
)

// putU16LE writes v little-endian into buf[0:2].
func putU16LE(buf []byte, v uint16) { binary.LittleEndian.PutUint16(buf, v) }

// putU16BE writes v big-endian into buf[0:2].
func putU16BE(buf []byte, v uint16) { binary.BigEndian.PutUint16(buf, v) }

// putU32LE writes v little-endian into buf[0:4].
func putU32LE(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }

// putU32BE writes v big-endian into buf[0:4].
func putU32BE(buf []byte, v uint32) { binary.BigEndian.PutUint32(buf, v) }

// putU16Both writes v as little-endian immediately followed by big-endian,
// ISO 9660's "both-byte-order" form (ECMA-119 7.2.3). buf must be >= 4 bytes.
func putU16Both(buf []byte, v uint16) {
	putU16LE(buf[0:2], v)
	putU16BE(buf[2:4], v)
}

// putU32Both writes v as little-endian immediately followed by big-endian
// (ECMA-119 7.3.3). buf must be >= 8 bytes.
func putU32Both(buf []byte, v uint32) {
	putU32LE(buf[0:4], v)
	putU32BE(buf[4:8], v)
}

// aString encodes s as an ISO 9660 a-character field of length n, padded
// with spaces (0x20). a-characters exclude lowercase; callers are expected
// to already hold uppercased input, but this does not enforce case.
func aString(s string, n int) ([]byte, error) {
	if len(s) > n {
		return nil, invalidInputf("aString", "value %q exceeds field width %d", s, n)
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, s)
	return buf, nil
}

// dString encodes s as an ISO 9660 d-character field of length n: uppercase
// letters, digits, and underscore only, space-padded.
func dString(s string, n int) ([]byte, error) {
	if len(s) > n {
		return nil, invalidInputf("dString", "value %q exceeds field width %d", s, n)
	}
	for _, r := range s {
		if !isDChar(r) {
			return nil, invalidInputf("dString", "value %q contains non-d-character %q", s, r)
		}
	}
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = ' '
	}
	copy(buf, s)
	return buf, nil
}

func isDChar(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_'
}

// sectorsForBytes returns the number of SectorSize logical blocks needed to
// hold n bytes, rounding up. A zero-length input still needs one block when
// the caller always materializes an extent (directories, non-empty files);
// callers decide whether n==0 should map to zero or one block.
func sectorsForBytes(n int64) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + SectorSize - 1) / SectorSize)
}
