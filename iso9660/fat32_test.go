package iso9660

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildESPLayoutBootSectorAndDirectoryEntries(t *testing.T) {
	uefi := &UefiBootConfig{
		BootImage:   bytesSource(make([]byte, 9000)), // spans multiple clusters
		KernelImage: bytesSource([]byte("kernel bytes")),
	}

	vol, err := buildESP(uefi, fixedTimestamp())
	require.NoError(t, err)

	assert.Equal(t, byte(0x55), vol[510])
	assert.Equal(t, byte(0xAA), vol[511])
	assert.Equal(t, espOEMName, string(vol[3:11]))
	assert.Equal(t, uint16(espBytesPerSector), le16(vol[11:13]))
	assert.Equal(t, byte(espSectorsPerCluster), vol[13])

	fsInfoOff := espBytesPerSector
	assert.Equal(t, uint32(0x41615252), le32(vol[fsInfoOff:fsInfoOff+4]))

	// Root directory (cluster 2) lives right after the reserved + FAT
	// regions; its first entry should be the "EFI" subdirectory.
	fatSectors := le32(vol[36:40])
	dataStart := (espReservedSectors + espNumFATs*fatSectors) * espBytesPerSector
	rootEntry := vol[dataStart : dataStart+32]
	assert.Equal(t, shortName83("EFI"), [11]byte(rootEntry[0:11]))
	assert.Equal(t, byte(dirAttrDirectory), rootEntry[11])
}

func le16(b []byte) uint16 { return uint16(b[0]) | uint16(b[1])<<8 }

func TestFormatFATTimestampZeroIsZero(t *testing.T) {
	ts := formatFATTimestamp(time.Time{})
	assert.Zero(t, ts.time)
	assert.Zero(t, ts.date)
}
