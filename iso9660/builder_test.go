package iso9660

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedTimestamp() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestBuildPlainImageSystemAreaAndVolumeDescriptors(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	require.NoError(t, b.AddFile("README.TXT", bytesSource("hello world")))
	require.NoError(t, b.AddFile("docs/notes.txt", bytesSource("some notes")))

	sink := NewMemSink()
	require.NoError(t, b.Build(sink, nil))

	img := sink.Bytes()

	systemArea := img[0 : SystemAreaSectorsPlain*SectorSize]
	for _, bb := range systemArea {
		require.Zero(t, bb, "system area must be all zero in a non-hybrid image")
	}

	pvdOff := int64(SystemAreaSectorsPlain) * SectorSize
	assert.Equal(t, byte(vdTypePrimary), img[pvdOff])
	assert.Equal(t, "CD001", string(img[pvdOff+1:pvdOff+6]))
	assert.Contains(t, string(img[pvdOff+40:pvdOff+72]), opts.VolumeIdentifier)

	// Boot record volume descriptor is absent; the terminator follows the PVD directly.
	termOff := pvdOff + SectorSize
	assert.Equal(t, byte(vdTypeTerminator), img[termOff])
	assert.Equal(t, "CD001", string(img[termOff+1:termOff+6]))
}

func TestBuildPlainImageFileContentRoundTrips(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	content := bytesSource("the quick brown fox jumps over the lazy dog")
	require.NoError(t, b.AddFile("fox.txt", content))

	sink := NewMemSink()
	require.NoError(t, b.Build(sink, nil))

	node, ok := b.tree.Lookup("fox.txt")
	require.True(t, ok)

	img := sink.Bytes()
	off := int64(node.LBA) * SectorSize
	got := img[off : off+int64(len(content))]
	assert.Equal(t, []byte(content), got)
}

func TestBuildIsIdempotentGivenPinnedTimestamp(t *testing.T) {
	build := func() []byte {
		opts := DefaultOptions()
		opts.Timestamp = fixedTimestamp()
		b := NewBuilder(opts, nil)
		require.NoError(t, b.AddFile("a/b/c.txt", bytesSource("stable content")))
		sink := NewMemSink()
		require.NoError(t, b.Build(sink, nil))
		return append([]byte(nil), sink.Bytes()...)
	}

	first := build()
	second := build()
	assert.Equal(t, first, second)
}

func TestBuildWithDuplicateDestinationFails(t *testing.T) {
	b := NewBuilder(nil, nil)
	require.NoError(t, b.AddFile("dup.txt", bytesSource("one")))
	err := b.AddFile("dup.txt", bytesSource("two, a different length"))
	require.Error(t, err)
}

func TestBuildBiosBootablePlacesBootRecordAndCatalog(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	bootImage := bytesSource("\x00\x01\x02\x03boot loader bytes")
	b.SetBootConfig(&BootConfig{
		Bios: &BiosBootConfig{BootImage: bootImage, DestinationInISO: "isolinux/isolinux.bin"},
	})

	sink := NewMemSink()
	require.NoError(t, b.Build(sink, nil))
	img := sink.Bytes()

	pvdLBA := uint32(SystemAreaSectorsPlain)
	brOff := int64(pvdLBA+1) * SectorSize
	assert.Equal(t, byte(vdTypeBootRecord), img[brOff])
	assert.Equal(t, elToritoSpecID, trimNulls(img[brOff+7:brOff+39]))

	node, ok := b.tree.Lookup("isolinux/isolinux.bin")
	require.True(t, ok)
	catalogLBA := le32(img[brOff+71 : brOff+75])
	assert.NotZero(t, catalogLBA)

	catOff := int64(catalogLBA) * SectorSize
	assert.Equal(t, byte(0x01), img[catOff]) // validation entry header ID
	entryLBA := le32(img[catOff+32+8 : catOff+32+12])
	assert.Equal(t, node.LBA, entryLBA)
}

func TestBuildHybridProducesGPTAndESP(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	b.SetBootConfig(&BootConfig{
		Uefi: &UefiBootConfig{
			BootImage:        bytesSource(make([]byte, 40000)), // large enough that the natural ESP clears MinESPSectors512
			DestinationInISO: "efi/boot/bootx64.efi",
		},
	})
	b.SetIsoHybrid(true)

	sink := NewMemSink()
	require.NoError(t, b.Build(sink, nil))
	img := sink.Bytes()

	assert.Equal(t, byte(0x55), img[510])
	assert.Equal(t, byte(0xAA), img[511])
	assert.Equal(t, byte(0xEE), img[446+4])

	gptHeaderOff := int64(1) * espBytesPerSectorForGPT
	assert.Equal(t, "EFI PART", string(img[gptHeaderOff:gptHeaderOff+8]))

	espOff := int64(ESPStartLBA) * SectorSize
	assert.Equal(t, byte(0x55), img[espOff+510])
	assert.Equal(t, byte(0xAA), img[espOff+511])

	require.NotNil(t, b.ESPBytes())

	brOff := int64(SystemAreaSectorsPlain+1) * SectorSize
	catalogLBA := le32(img[brOff+71 : brOff+75])
	catOff := int64(catalogLBA) * SectorSize
	entryLBA := le32(img[catOff+32+8 : catOff+32+12])
	assert.Equal(t, uint32(ESPStartLBA), entryLBA, "hybrid image's UEFI catalog entry should point at the ESP extent, not the boot image file node")
}

func TestBuildRejectsNaturallyUndersizedESP(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	b.SetBootConfig(&BootConfig{
		Uefi: &UefiBootConfig{
			BootImage:        bytesSource("tiny"),
			DestinationInISO: "efi/boot/bootx64.efi",
		},
	})
	b.SetIsoHybrid(true)

	err := b.Build(NewMemSink(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildRejectsESPSizeOverrideBelowMinimum(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	b.SetBootConfig(&BootConfig{
		Uefi: &UefiBootConfig{
			BootImage:        bytesSource(make([]byte, 40000)),
			DestinationInISO: "efi/boot/bootx64.efi",
		},
	})
	b.SetIsoHybrid(true)

	sink := NewMemSink()
	belowMinimum := uint32(60)
	err := b.Build(sink, &ESPOverride{SizeSectors: &belowMinimum})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	length, lenErr := sink.Len()
	require.NoError(t, lenErr)
	assert.Zero(t, length, "no bytes should be written once the ESP size override fails validation")
}

func TestBuildHonorsESPSizeOverride(t *testing.T) {
	opts := DefaultOptions()
	opts.Timestamp = fixedTimestamp()
	b := NewBuilder(opts, nil)

	b.SetBootConfig(&BootConfig{
		Uefi: &UefiBootConfig{
			BootImage:        bytesSource(make([]byte, 40000)),
			DestinationInISO: "efi/boot/bootx64.efi",
		},
	})
	b.SetIsoHybrid(true)

	sink := NewMemSink()
	overrideSectors := uint32(512)
	require.NoError(t, b.Build(sink, &ESPOverride{SizeSectors: &overrideSectors}))

	espBytes := b.ESPBytes()
	require.Len(t, espBytes, int(overrideSectors)*espBytesPerSectorForGPT)
}

func trimNulls(b []byte) string {
	i := 0
	for i < len(b) && b[i] != 0 {
		i++
	}
	return string(b[:i])
}
