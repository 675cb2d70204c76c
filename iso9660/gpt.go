package iso9660

import (
	"hash/crc32"

	"github.com/google/uuid"
)

// mixedEndianGUID converts a standard RFC 4122 big-endian GUID (as held by
// google/uuid) into the mixed-endian layout GPT/EFI structures store on
// disk: the first three fields (time-low, time-mid, time-hi-and-version)
// are byte-reversed to little-endian; the last two fields (clock sequence
// and node) are left in network byte order.
func mixedEndianGUID(u uuid.UUID) [16]byte {
	var out [16]byte
	out[0], out[1], out[2], out[3] = u[3], u[2], u[1], u[0]
	out[4], out[5] = u[5], u[4]
	out[6], out[7] = u[7], u[6]
	copy(out[8:], u[8:])
	return out
}

func parseMixedEndianFromStandard(s string) [16]byte {
	u := uuid.MustParse(s)
	return mixedEndianGUID(u)
}

// utf16leName encodes s as a little-endian UTF-16 byte slice of exactly n
// bytes, null-padded, truncating s if it is too long to fit.
func utf16leName(s string, n int) []byte {
	out := make([]byte, n)
	pos := 0
	for _, r := range s {
		if pos+2 > n {
			break
		}
		putU16LE(out[pos:pos+2], uint16(r))
		pos += 2
	}
	return out
}

type gptPartitionPlan struct {
	typeGUID   [16]byte
	uniqueGUID [16]byte
	startLBA   uint64 // 512-byte sector
	endLBA     uint64 // 512-byte sector, inclusive
	name       string
}

// buildGPT renders the protective MBR plus the primary and backup GPT
// structures for a hybrid image. All LBAs inside the GPT header and
// partition entries are expressed in the GPT/MBR native 512-byte sector,
// independent of the ISO 9660 2048-byte logical block p's fields use.
func buildGPT(p *Plan, opts *Options) (mbr, primaryHeader, primaryEntries, backupHeader, backupEntries []byte, err error) {
	total512 := uint64(p.TotalSectors) * SectorsPerLBA512
	espStart512 := uint64(p.ESPLBA) * SectorsPerLBA512
	espEnd512 := espStart512 + uint64(p.ESPSectors)*SectorsPerLBA512 - 1

	backupArrayStart512 := total512 - 1 - gptBackupArraySectors512
	backupHeaderLBA512 := total512 - 1
	firstUsable512 := uint64(gptFirstUsableLBA512)
	lastUsable512 := backupArrayStart512 - 1

	diskGUID := randomOrPinned(opts.DiskGUID)
	espGUID := randomOrPinned(opts.ESPGUID)

	part := gptPartitionPlan{
		typeGUID:   parseMixedEndianFromStandard(espTypeGUID),
		uniqueGUID: espGUID,
		startLBA:   espStart512,
		endLBA:     espEnd512,
		name:       "EFI System Partition",
	}

	entries := make([]byte, gptPartitionEntryCount*gptPartitionEntrySize)
	marshalPartitionEntry(entries[0:gptPartitionEntrySize], part)
	entriesCRC := crc32.ChecksumIEEE(entries)

	primary := marshalGPTHeader(gptHeaderArgs{
		myLBA:          1,
		alternateLBA:   backupHeaderLBA512,
		firstUsableLBA: firstUsable512,
		lastUsableLBA:  lastUsable512,
		diskGUID:       diskGUID,
		partEntryLBA:   2,
		partEntriesCRC: entriesCRC,
	})
	backup := marshalGPTHeader(gptHeaderArgs{
		myLBA:          backupHeaderLBA512,
		alternateLBA:   1,
		firstUsableLBA: firstUsable512,
		lastUsableLBA:  lastUsable512,
		diskGUID:       diskGUID,
		partEntryLBA:   backupArrayStart512,
		partEntriesCRC: entriesCRC,
	})

	return buildProtectiveMBR(total512), primary, entries, backup, entries, nil
}

// gptBackupArraySectors512 is the partition-entry-array portion of the
// trailing GPT backup region, in 512-byte sectors (the remaining sector of
// GPTBackupSectors holds the backup header itself).
const gptBackupArraySectors512 = (gptPartitionEntryCount * gptPartitionEntrySize) / espBytesPerSectorForGPT

func randomOrPinned(pinned *[16]byte) [16]byte {
	if pinned != nil {
		return *pinned
	}
	return mixedEndianGUID(uuid.New())
}

func marshalPartitionEntry(buf []byte, part gptPartitionPlan) {
	copy(buf[0:16], part.typeGUID[:])
	copy(buf[16:32], part.uniqueGUID[:])
	putU64LE(buf[32:40], part.startLBA)
	putU64LE(buf[40:48], part.endLBA)
	putU64LE(buf[48:56], 0) // attributes
	copy(buf[56:128], utf16leName(part.name, 72))
}

type gptHeaderArgs struct {
	myLBA          uint64
	alternateLBA   uint64
	firstUsableLBA uint64
	lastUsableLBA  uint64
	diskGUID       [16]byte
	partEntryLBA   uint64
	partEntriesCRC uint32
}

// marshalGPTHeader renders a 92-byte GPT header (UEFI spec §5.3.2) and
// then patches in its own CRC32 (computed with the CRC field zeroed).
func marshalGPTHeader(a gptHeaderArgs) []byte {
	buf := make([]byte, gptHeaderSize)
	copy(buf[0:8], []byte("EFI PART"))
	putU32LE(buf[8:12], gptRevision)
	putU32LE(buf[12:16], gptHeaderSize)
	// buf[16:20] CRC32, computed below.
	// buf[20:24] reserved, zero.
	putU64LE(buf[24:32], a.myLBA)
	putU64LE(buf[32:40], a.alternateLBA)
	putU64LE(buf[40:48], a.firstUsableLBA)
	putU64LE(buf[48:56], a.lastUsableLBA)
	copy(buf[56:72], a.diskGUID[:])
	putU64LE(buf[72:80], a.partEntryLBA)
	putU32LE(buf[80:84], gptPartitionEntryCount)
	putU32LE(buf[84:88], gptPartitionEntrySize)
	putU32LE(buf[88:92], a.partEntriesCRC)

	crc := crc32.ChecksumIEEE(buf)
	putU32LE(buf[16:20], crc)
	return buf
}

// buildProtectiveMBR renders a single 512-byte protective MBR (UEFI spec
// §5.2.3) describing the whole disk as one 0xEE partition.
func buildProtectiveMBR(totalSectors512 uint64) []byte {
	mbr := make([]byte, 512)
	sectors := totalSectors512 - 1
	if sectors > 0xFFFFFFFF {
		sectors = 0xFFFFFFFF
	}
	entry := mbr[446:462]
	entry[0] = 0x00       // not bootable
	entry[1], entry[2], entry[3] = 0x00, 0x02, 0x00
	entry[4] = 0xEE // protective GPT partition type
	entry[5], entry[6], entry[7] = 0xFF, 0xFF, 0xFF
	putU32LE(entry[8:12], 1)
	putU32LE(entry[12:16], uint32(sectors))
	mbr[510], mbr[511] = 0x55, 0xAA
	return mbr
}

func putU64LE(buf []byte, v uint64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}
