package iso9660

const (
	// SectorSize is the ISO 9660 logical block size in bytes.
	SectorSize = 2048

	// SystemAreaSectorsPlain is the number of reserved, zeroed sectors at the
	// start of a non-hybrid image (ECMA-119 System Area, LBAs 0-15).
	SystemAreaSectorsPlain = 16

	// ESPStartLBA is the fixed logical block at which the FAT32 EFI System
	// Partition begins in a hybrid image.
	ESPStartLBA = 34

	// SectorsPerLBA512 is the number of 512-byte physical sectors per
	// 2048-byte logical block, used when converting between ISO LBAs and the
	// 512-byte sector addressing GPT/MBR structures use natively.
	SectorsPerLBA512 = SectorSize / 512

	// GPTBackupSectors is the number of trailing 512-byte GPT sectors holding
	// the GPT backup partition-entry array and backup header; the layout
	// rounds this up to whole 2048-byte logical blocks.
	GPTBackupSectors = 33

	// MinESPSectors512 is the smallest legal ESP size, in 512-byte sectors
	// (legacy FAT minimum).
	MinESPSectors512 = 69

	// gptFirstUsableLBA512 is the first 512-byte GPT/MBR sector available to
	// any partition: immediately after the primary header (sector 1) and
	// the 128-entry, 128-byte partition array (sectors 2-33). It is a fixed
	// structural constant, independent of where any individual partition
	// (such as the ESP) actually starts.
	gptFirstUsableLBA512 = 34

	// vdTypeBootRecord identifies a Boot Record Volume Descriptor.
	vdTypeBootRecord byte = 0
	// vdTypePrimary identifies a Primary Volume Descriptor.
	vdTypePrimary byte = 1
	// vdTypeTerminator identifies a Volume Descriptor Set Terminator.
	vdTypeTerminator byte = 255

	// drFixedPartSize is the size of a Directory Record excluding the
	// identifier and its padding (ECMA-119 9.1).
	drFixedPartSize = 33
	// ptRecFixedPartSize is the size of a Path Table Record excluding the
	// identifier and its padding (ECMA-119 9.4).
	ptRecFixedPartSize = 8

	// elToritoSpecID is the Boot Record's boot system identifier.
	elToritoSpecID = "EL TORITO SPECIFICATION"

	// espVolumeLabel and espOEMName are fixed FAT32 ESP identifiers.
	espVolumeLabel = "ESP"
	espOEMName     = "MSWIN4.1"

	// espBootX64Name and espKernelName are the fixed on-ESP boot file names.
	espBootX64Name = "BOOTX64.EFI"
	espKernelName  = "KERNEL.EFI"

	// espBytesPerSector is the FAT32 ESP's physical sector size.
	espBytesPerSector = 512
	// espSectorsPerCluster gives 4096-byte clusters.
	espSectorsPerCluster = 8
	// espReservedSectors is the count of boot-sector/FSInfo reserved sectors.
	espReservedSectors = 32
	// espNumFATs is the number of FAT copies.
	espNumFATs = 2
	// espRootCluster is the first cluster of the root directory.
	espRootCluster = 2

	// gptPartitionEntryCount and gptPartitionEntrySize fix the GPT array size.
	gptPartitionEntryCount = 128
	gptPartitionEntrySize  = 128
	gptHeaderSize          = 92
	gptRevision            = 0x00010000
)

// espTypeGUID is the partition type GUID for an EFI System Partition.
const espTypeGUID = "C12A7328-F81F-11D2-BA4B-00A0C93EC93B"
