package iso9660

import (
	"bytes"
	"sort"
)

// directoryRecordFields holds a single Directory Record's fixed-size fields
// (ECMA-119 9.1), everything except the variable-length identifier.
type directoryRecordFields struct {
	ExtendedAttributeRecordLength byte
	LocationExtent                uint32
	DataLength                    uint32
	RecordingTime                 [7]byte
	FileFlags                     byte
	FileUnitSize                  byte
	InterleaveGapSize             byte
	VolumeSequenceNumber          uint16
}

const maxDRIdentifierLen = 221 // keeps the 33-byte fixed part + identifier + pad under the 255-byte DR length field

// marshalDirectoryRecord encodes fields and identifier into a full,
// even-length Directory Record.
func marshalDirectoryRecord(fields *directoryRecordFields, identifier []byte) ([]byte, error) {
	if len(identifier) > maxDRIdentifierLen {
		return nil, invalidInputf("marshalDirectoryRecord", "identifier %q exceeds %d bytes", identifier, maxDRIdentifierLen)
	}
	identifierLen := byte(len(identifier))
	recordLen := drFixedPartSize + int(identifierLen)
	if recordLen%2 != 0 {
		recordLen++
	}

	buf := make([]byte, recordLen)
	buf[0] = byte(recordLen)
	buf[1] = fields.ExtendedAttributeRecordLength
	putU32Both(buf[2:10], fields.LocationExtent)
	putU32Both(buf[10:18], fields.DataLength)
	copy(buf[18:25], fields.RecordingTime[:])
	buf[25] = fields.FileFlags
	buf[26] = fields.FileUnitSize
	buf[27] = fields.InterleaveGapSize
	putU16Both(buf[28:32], fields.VolumeSequenceNumber)
	buf[32] = identifierLen
	copy(buf[33:], identifier)
	return buf, nil
}

// calculateDirectoryRecordSize returns a Directory Record's total byte
// length (including padding) for the given identifier.
func calculateDirectoryRecordSize(identifier []byte) int {
	length := drFixedPartSize + len(identifier)
	if length%2 != 0 {
		length++
	}
	return length
}

// dirEntryDesc is one row a directory's listing will contain: either the
// synthetic "." / ".." entries or one of its children.
type dirEntryDesc struct {
	name  []byte
	lba   uint32
	size  uint32
	isDir bool
}

// directoryEntries builds d's full listing in the order it will be written:
// "." then ".." then children in ISO 9660's required lexicographic order
// (ECMA-119 9.3), which sorts ahead of every ordinary d-character because
// 0x00 (".") and 0x01 ("..") are the two lowest possible byte values.
func directoryEntries(d *FsNode) ([]dirEntryDesc, error) {
	parent := d
	if d.parent != nil {
		parent = d.parent
	}
	entries := []dirEntryDesc{
		{name: []byte{0x00}, lba: d.LBA, size: d.ExtentLen, isDir: true},
		{name: []byte{0x01}, lba: parent.LBA, size: parent.ExtentLen, isDir: true},
	}

	children := d.ChildrenInInsertOrder()
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })

	for _, c := range children {
		if c.Kind == KindDirectory {
			entries = append(entries, dirEntryDesc{name: []byte(c.Name), lba: c.LBA, size: c.ExtentLen, isDir: true})
			continue
		}
		name := append([]byte(c.Name), ';', '1')
		entries = append(entries, dirEntryDesc{name: name, lba: c.LBA, size: uint32(c.Size), isDir: false})
	}
	return entries, nil
}

// directoryExtentSize computes the sector-rounded byte length of a
// directory's extent, honoring the rule that a Directory Record must never
// span a logical block boundary (ECMA-119 6.8.1.1): a record that would
// cross the boundary is instead pushed into the next block, and the
// remainder of the current block is zero-padded.
func directoryExtentSize(entries []dirEntryDesc) (uint32, error) {
	pos := 0
	for _, e := range entries {
		recLen := calculateDirectoryRecordSize(e.name)
		if recLen > SectorSize {
			return 0, invalidInputf("directoryExtentSize", "directory record for %q is %d bytes, exceeds logical block size", e.name, recLen)
		}
		remaining := SectorSize - pos%SectorSize
		if recLen > remaining {
			pos += remaining
		}
		pos += recLen
	}
	if rem := pos % SectorSize; rem != 0 {
		pos += SectorSize - rem
	}
	if pos == 0 {
		pos = SectorSize
	}
	return uint32(pos), nil
}

// marshalDirectoryExtent renders d's full listing into a zero-padded,
// ExtentLen-sized buffer, applying the same no-split-across-blocks packing
// directoryExtentSize assumed when it sized the extent.
func marshalDirectoryExtent(d *FsNode, recTime [7]byte) ([]byte, error) {
	entries, err := directoryEntries(d)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, d.ExtentLen)
	pos := 0
	for _, e := range entries {
		recLen := calculateDirectoryRecordSize(e.name)
		remaining := SectorSize - pos%SectorSize
		if recLen > remaining {
			pos += remaining
		}
		fields := directoryRecordFields{
			LocationExtent:       e.lba,
			DataLength:           e.size,
			RecordingTime:        recTime,
			VolumeSequenceNumber: 1,
		}
		if e.isDir {
			fields.FileFlags = 0x02
		}
		rec, err := marshalDirectoryRecord(&fields, e.name)
		if err != nil {
			return nil, err
		}
		if pos+len(rec) > len(buf) {
			return nil, invalidInputf("marshalDirectoryExtent", "directory extent overflow writing %q", e.name)
		}
		copy(buf[pos:], rec)
		pos += len(rec)
	}
	return buf, nil
}

// marshalPathTableRecord encodes a single Path Table Record (ECMA-119 9.4)
// in either L-type (little-endian) or M-type (big-endian) form.
func marshalPathTableRecord(name []byte, lba uint32, parentDirNumber uint16, bigEndian bool) []byte {
	idLen := len(name)
	recLen := ptRecFixedPartSize + idLen
	if recLen%2 != 0 {
		recLen++
	}
	buf := make([]byte, recLen)
	buf[0] = byte(idLen)
	buf[1] = 0
	if bigEndian {
		putU32BE(buf[2:6], lba)
		putU16BE(buf[6:8], parentDirNumber)
	} else {
		putU32LE(buf[2:6], lba)
		putU16LE(buf[6:8], parentDirNumber)
	}
	copy(buf[8:], name)
	return buf
}

// buildPathTable renders dirs (root first, in the breadth-first order that
// assigned their pathNumber) into a complete L-type or M-type path table.
func buildPathTable(dirs []*FsNode, bigEndian bool) []byte {
	buf := new(bytes.Buffer)
	for _, d := range dirs {
		name := []byte{0x00}
		if !d.IsRoot() {
			name = []byte(d.Name)
		}
		parentNum := uint16(1)
		if d.parent != nil {
			parentNum = d.parent.pathNumber
		}
		buf.Write(marshalPathTableRecord(name, d.LBA, parentNum, bigEndian))
	}
	return buf.Bytes()
}

// pathTableBytes returns the L-type path table for dirs, used to size the
// path table extent before LBAs are assigned (LBAs are filled with zero
// here since L-type and M-type tables are always the same length).
func pathTableBytes(dirs []*FsNode) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, d := range dirs {
		name := []byte{0x00}
		if !d.IsRoot() {
			name = []byte(d.Name)
		}
		buf.Write(marshalPathTableRecord(name, 0, 1, false))
	}
	return buf.Bytes(), nil
}
