package iso9660

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryExtentSizeNeverSplitsARecordAcrossABlock(t *testing.T) {
	// SectorSize isn't a multiple of each child DR's length, so packing
	// greedily must eventually push a record into the next block rather
	// than splitting it.
	entries := []dirEntryDesc{
		{name: []byte{0x00}, isDir: true},
		{name: []byte{0x01}, isDir: true},
	}
	for i := 0; i < 80; i++ {
		entries = append(entries, dirEntryDesc{name: []byte("ENTRY01.TXT;1"), isDir: false, size: 1})
	}

	size, err := directoryExtentSize(entries)
	require.NoError(t, err)
	assert.Zero(t, size%SectorSize)

	// Simulate the packing pass used by marshalDirectoryExtent and confirm
	// no record's bytes span a SectorSize boundary.
	pos := 0
	for _, e := range entries {
		recLen := calculateDirectoryRecordSize(e.name)
		remaining := SectorSize - pos%SectorSize
		if recLen > remaining {
			pos += remaining
		}
		startBlock := pos / SectorSize
		endBlock := (pos + recLen - 1) / SectorSize
		assert.Equal(t, startBlock, endBlock, "record crossed a block boundary")
		pos += recLen
	}
}

func TestDirectoryEntriesSortLexicographicallyWithDotFirst(t *testing.T) {
	root := newDirNode("", "/", nil)
	b := &FsNode{Kind: KindFile, Name: "B.TXT", Size: 1, parent: root}
	a := &FsNode{Kind: KindFile, Name: "A.TXT", Size: 1, parent: root}
	root.children = map[string]*FsNode{"B.TXT": b, "A.TXT": a}
	root.order = []string{"B.TXT", "A.TXT"}

	entries, err := directoryEntries(root)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, []byte{0x00}, entries[0].name)
	assert.Equal(t, []byte{0x01}, entries[1].name)
	assert.Equal(t, "A.TXT;1", string(entries[2].name))
	assert.Equal(t, "B.TXT;1", string(entries[3].name))
}

func TestPathTableBytesRootUsesZeroByteIdentifier(t *testing.T) {
	root := newDirNode("", "/", nil)
	root.LBA = 16
	sub := newDirNode("DOCS", "/docs/", root)
	sub.LBA = 20
	root.children = map[string]*FsNode{"DOCS": sub}
	root.order = []string{"DOCS"}
	dirs := []*FsNode{root, sub}
	assignPathNumbers(dirs)

	raw, err := pathTableBytes(dirs)
	require.NoError(t, err)
	assert.Equal(t, byte(1), raw[0]) // length of root's identifier
	assert.Equal(t, byte(0x00), raw[8])

	built := buildPathTable(dirs, false)
	rootRecLen := 8 + 1 + 1 // idLen(1) + extAttr(1) + LBA(4) + parentNum(2) + name(1), padded to even
	secondParentNumOff := rootRecLen + 6
	assert.Equal(t, uint16(1), uint16(built[secondParentNumOff])|uint16(built[secondParentNumOff+1])<<8)
}
