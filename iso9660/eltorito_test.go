package iso9660

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationEntryChecksumsToZero(t *testing.T) {
	entry := buildValidationEntry(platformUEFI)
	require.Len(t, entry, 32)

	var sum uint32
	for i := 0; i < 32; i += 2 {
		sum += uint32(entry[i]) | uint32(entry[i+1])<<8
	}
	assert.Zero(t, sum&0xFFFF)
	assert.Equal(t, byte(0x55), entry[30])
	assert.Equal(t, byte(0xAA), entry[31])
}

func TestBuildBootCatalogUefiIsDefaultWhenBothPresent(t *testing.T) {
	boot := &BootConfig{
		Bios: &BiosBootConfig{BootImage: bytesSource("bios"), DestinationInISO: "isolinux/isolinux.bin"},
		Uefi: &UefiBootConfig{BootImage: bytesSource("uefi"), DestinationInISO: "efi/boot/bootx64.efi"},
	}
	biosNode := &FsNode{Kind: KindFile, LBA: 100, Size: 4}
	uefiNode := &FsNode{Kind: KindFile, LBA: 200, Size: 4}

	catalog, err := buildBootCatalog(boot, biosNode, uefiNode)
	require.NoError(t, err)
	require.Len(t, catalog, 128) // validation + default + section header + section entry

	assert.Equal(t, platformUEFI, catalog[1]) // validation entry's platform
	defaultEntryLBA := catalog[32+8 : 32+12]
	assert.Equal(t, uint32(200), le32(defaultEntryLBA))

	sectionHeaderPlatform := catalog[64+1]
	assert.Equal(t, platformBIOS, sectionHeaderPlatform)
	sectionEntryLBA := catalog[96+8 : 96+12]
	assert.Equal(t, uint32(100), le32(sectionEntryLBA))
}

func TestBuildBootCatalogBiosOnly(t *testing.T) {
	boot := &BootConfig{Bios: &BiosBootConfig{BootImage: bytesSource("bios"), DestinationInISO: "isolinux/isolinux.bin"}}
	biosNode := &FsNode{Kind: KindFile, LBA: 50, Size: 4}

	catalog, err := buildBootCatalog(boot, biosNode, nil)
	require.NoError(t, err)
	require.Len(t, catalog, 64)
	assert.Equal(t, platformBIOS, catalog[1])
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
