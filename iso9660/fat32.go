package iso9660

import (
	"fmt"
	"time"
)

const (
	espClusterSize = espBytesPerSector * espSectorsPerCluster // 4096 bytes

	fatMediaDescriptor = 0x0FFFFFF8 // reserved cluster 0 entry: media descriptor in the low byte, all other bits set
	fatEOC             = 0x0FFFFFFF
	fatEntryMask       = 0x0FFFFFFF

	dirAttrDirectory = 0x10
	dirAttrArchive   = 0x20
)

// espPlan is the materialized layout of the FAT32 EFI System Partition
// before it is rendered into bytes: every directory and file's starting
// cluster, ready for both the FAT table and the directory entries.
type espPlan struct {
	totalClusters uint32 // highest allocated cluster number minus 1 (cluster 2 is first)
	fatSectors    uint32
	totalSectors  uint32

	rootEntries []fat32DirEntry
	efiEntries  []fat32DirEntry
	bootEntries []fat32DirEntry

	efiCluster  uint32
	bootCluster uint32

	fileData map[uint32][]byte // cluster -> raw content for the file starting there, used to copy cluster-by-cluster
	chains    map[uint32]uint32 // cluster -> next cluster (or fatEOC), for every allocated cluster
}

// fat32DirEntry is a single 32-byte FAT32 short (8.3) directory entry.
type fat32DirEntry struct {
	name     [11]byte
	attr     byte
	cluster  uint32
	size     uint32
	modStamp time.Time
}

func shortName83(name string) [11]byte {
	var out [11]byte
	for i := range out {
		out[i] = ' '
	}
	base, ext := name, ""
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '.' {
			base, ext = name[:i], name[i+1:]
			break
		}
	}
	copy(out[0:8], base)
	copy(out[8:11], ext)
	return out
}

// buildESP materializes the FAT32 EFI System Partition: EFI/BOOT/BOOTX64.EFI
// and, if present, EFI/BOOT/KERNEL.EFI. It returns the complete byte image
// of the partition, independent of where the caller ultimately places it.
func buildESP(uefi *UefiBootConfig, when time.Time) ([]byte, error) {
	if uefi == nil || uefi.BootImage == nil {
		return nil, invalidInputf("buildESP", "UEFI boot configuration requires a boot image")
	}

	nextCluster := uint32(espRootCluster + 1) // cluster 2 is root
	chains := map[uint32]uint32{}
	fileData := map[uint32][]byte{}

	allocDir := func() uint32 {
		c := nextCluster
		nextCluster++
		chains[c] = fatEOC
		return c
	}
	// allocFile reads src cluster-by-cluster via ReadAt, one buffer per
	// cluster. Every buffer is kept in fileData until renderESP copies it
	// into the volume, so the file's full content is held in memory.
	allocFile := func(src Source) (uint32, error) {
		size := src.Size()
		start := nextCluster
		n := bytesToClusters(size)
		if n == 0 {
			n = 1
		}
		for i := uint32(0); i < n; i++ {
			c := nextCluster
			nextCluster++
			if i == n-1 {
				chains[c] = fatEOC
			} else {
				chains[c] = c + 1
			}
			lo := int64(i) * espClusterSize
			hi := lo + espClusterSize
			if hi > size {
				hi = size
			}
			buf := make([]byte, hi-lo)
			if len(buf) > 0 {
				if _, err := src.ReadAt(buf, lo); err != nil {
					return 0, classifyReadErr("buildESP", err)
				}
			}
			fileData[c] = buf
		}
		return start, nil
	}

	efiCluster := allocDir()
	bootCluster := allocDir()
	bootX64Cluster, err := allocFile(uefi.BootImage)
	if err != nil {
		return nil, err
	}

	bootEntries := []fat32DirEntry{
		dotEntry(bootCluster),
		dotDotEntry(efiCluster),
		{name: shortName83(espBootX64Name), attr: dirAttrArchive, cluster: bootX64Cluster, size: uint32(uefi.BootImage.Size()), modStamp: when},
	}
	if uefi.KernelImage != nil {
		kernelCluster, err := allocFile(uefi.KernelImage)
		if err != nil {
			return nil, err
		}
		bootEntries = append(bootEntries, fat32DirEntry{
			name: shortName83(espKernelName), attr: dirAttrArchive, cluster: kernelCluster, size: uint32(uefi.KernelImage.Size()), modStamp: when,
		})
	}

	efiEntries := []fat32DirEntry{
		dotEntry(efiCluster),
		dotDotEntry(espRootCluster),
		{name: shortName83("BOOT"), attr: dirAttrDirectory, cluster: bootCluster, size: 0, modStamp: when},
	}
	rootEntries := []fat32DirEntry{
		{name: shortName83("EFI"), attr: dirAttrDirectory, cluster: efiCluster, size: 0, modStamp: when},
	}
	chains[espRootCluster] = fatEOC

	p := &espPlan{
		totalClusters: nextCluster - espRootCluster,
		rootEntries:   rootEntries,
		efiEntries:    efiEntries,
		bootEntries:   bootEntries,
		efiCluster:    efiCluster,
		bootCluster:   bootCluster,
		fileData:      fileData,
		chains:        chains,
	}

	return renderESP(p, when)
}

func dotEntry(selfCluster uint32) fat32DirEntry {
	e := fat32DirEntry{attr: dirAttrDirectory, cluster: selfCluster}
	e.name[0] = '.'
	for i := 1; i < 11; i++ {
		e.name[i] = ' '
	}
	return e
}

func dotDotEntry(parentCluster uint32) fat32DirEntry {
	e := fat32DirEntry{attr: dirAttrDirectory, cluster: parentCluster}
	e.name[0], e.name[1] = '.', '.'
	for i := 2; i < 11; i++ {
		e.name[i] = ' '
	}
	return e
}

func bytesToClusters(n int64) uint32 {
	if n <= 0 {
		return 0
	}
	return uint32((n + espClusterSize - 1) / espClusterSize)
}

// renderESP lays out reserved sectors, FSInfo, two FAT copies, and the data
// region (root, EFI, BOOT directory clusters, then file content clusters)
// into one contiguous byte slice.
func renderESP(p *espPlan, when time.Time) ([]byte, error) {
	maxCluster := espRootCluster + p.totalClusters
	fatEntries := maxCluster + 1 // FAT must cover cluster 0..maxCluster
	p.fatSectors = (fatEntries*4 + espBytesPerSector - 1) / espBytesPerSector

	dataSectors := p.totalClusters * espSectorsPerCluster
	p.totalSectors = espReservedSectors + espNumFATs*p.fatSectors + dataSectors
	if p.totalSectors < MinESPSectors512 {
		return nil, invalidInputf("renderESP", "ESP size %d sectors is below the %d sector minimum", p.totalSectors, MinESPSectors512)
	}

	buf := make([]byte, int64(p.totalSectors)*espBytesPerSector)

	writeBootSector(buf[0:espBytesPerSector], p, when)
	writeFSInfoSector(buf[espBytesPerSector:2*espBytesPerSector])

	fatStart := espReservedSectors * espBytesPerSector
	fat := buf[fatStart : fatStart+int(p.fatSectors)*espBytesPerSector]
	putU32LE(fat[0:4], fatMediaDescriptor)
	putU32LE(fat[4:8], fatEOC)
	for cluster, next := range p.chains {
		off := int(cluster) * 4
		if off+4 > len(fat) {
			return nil, newErr(InvalidData, "renderESP", fmt.Errorf("cluster %d overruns FAT region", cluster))
		}
		putU32LE(fat[off:off+4], next&fatEntryMask)
	}
	// second FAT copy, identical to the first.
	copy(buf[fatStart+int(p.fatSectors)*espBytesPerSector:], fat)

	dataStart := (espReservedSectors + espNumFATs*p.fatSectors) * espBytesPerSector
	clusterOffset := func(cluster uint32) int64 {
		return int64(dataStart) + int64(cluster-espRootCluster)*espClusterSize
	}

	writeDirCluster(buf, clusterOffset(espRootCluster), p.rootEntries)
	writeDirCluster(buf, clusterOffset(p.efiCluster), p.efiEntries)
	writeDirCluster(buf, clusterOffset(p.bootCluster), p.bootEntries)
	for cluster, content := range p.fileData {
		off := clusterOffset(cluster)
		copy(buf[off:off+espClusterSize], content)
	}

	return buf, nil
}

// applyESPSizeOverride validates a caller-supplied esp_size_sectors_override
// (in 512-byte sectors) against the legal minimum and against the size of
// the already-materialized FAT32 volume, then zero-pads esp out to exactly
// that size. It returns InvalidInput before any image bytes are written if
// the override is too small either way.
func applyESPSizeOverride(esp []byte, sizeSectors512 uint32) ([]byte, error) {
	if sizeSectors512 < MinESPSectors512 {
		return nil, invalidInputf("applyESPSizeOverride", "esp_size_sectors_override %d sectors is below the %d sector minimum", sizeSectors512, MinESPSectors512)
	}
	sizeBytes := int64(sizeSectors512) * espBytesPerSector
	if sizeBytes < int64(len(esp)) {
		return nil, invalidInputf("applyESPSizeOverride", "esp_size_sectors_override %d sectors is smaller than the %d byte materialized ESP volume", sizeSectors512, len(esp))
	}
	if sizeBytes == int64(len(esp)) {
		return esp, nil
	}
	padded := make([]byte, sizeBytes)
	copy(padded, esp)
	putU32LE(padded[32:36], sizeSectors512) // BPB total-sectors-32 must match the padded volume size
	return padded, nil
}

func writeBootSector(sec []byte, p *espPlan, when time.Time) {
	sec[0], sec[1], sec[2] = 0xEB, 0x58, 0x90
	copy(sec[3:11], []byte(espOEMName))
	putU16LE(sec[11:13], espBytesPerSector)
	sec[13] = espSectorsPerCluster
	putU16LE(sec[14:16], espReservedSectors)
	sec[16] = espNumFATs
	putU16LE(sec[17:19], 0) // root entry count: 0 for FAT32
	putU16LE(sec[19:21], 0) // total sectors (16-bit): unused, 32-bit field below
	sec[21] = 0xF8          // media descriptor, fixed disk
	putU16LE(sec[22:24], 0) // FAT size (16-bit): unused, 32-bit field below
	putU16LE(sec[24:26], 32)
	putU16LE(sec[26:28], 64)
	putU32LE(sec[28:32], 0)
	putU32LE(sec[32:36], p.totalSectors)
	putU32LE(sec[36:40], p.fatSectors)
	putU16LE(sec[40:42], 0) // ext flags: mirrored FATs, no active FAT override
	putU16LE(sec[42:44], 0)
	putU32LE(sec[44:48], espRootCluster)
	putU16LE(sec[48:50], 1)
	putU16LE(sec[50:52], 6)
	sec[64] = 0x80
	sec[66] = 0x29
	putU32LE(sec[67:71], uint32(when.Unix()))
	copy(sec[71:82], []byte(espVolumeLabel+"        ")[:11])
	copy(sec[82:90], []byte("FAT32   "))
	sec[510], sec[511] = 0x55, 0xAA
}

func writeFSInfoSector(sec []byte) {
	putU32LE(sec[0:4], 0x41615252)
	putU32LE(sec[484:488], 0x61417272)
	putU32LE(sec[488:492], 0xFFFFFFFF) // free cluster count: unknown
	putU32LE(sec[492:496], 0xFFFFFFFF) // next free cluster hint: unknown
	sec[508], sec[509], sec[510], sec[511] = 0x00, 0x00, 0x55, 0xAA
}

func writeDirCluster(buf []byte, off int64, entries []fat32DirEntry) {
	pos := off
	for _, e := range entries {
		rec := buf[pos : pos+32]
		copy(rec[0:11], e.name[:])
		rec[11] = e.attr
		t := formatFATTimestamp(e.modStamp)
		putU16LE(rec[14:16], t.time)
		putU16LE(rec[16:18], t.date)
		putU16LE(rec[18:20], t.date) // last access date
		putU16LE(rec[20:22], uint16(e.cluster>>16))
		putU16LE(rec[22:24], t.time)
		putU16LE(rec[24:26], t.date)
		putU16LE(rec[26:28], uint16(e.cluster))
		putU32LE(rec[28:32], e.size)
		pos += 32
	}
}

type fatTimestamp struct {
	time uint16
	date uint16
}

func formatFATTimestamp(t time.Time) fatTimestamp {
	if t.IsZero() {
		return fatTimestamp{}
	}
	tm := uint16(t.Second()/2) | uint16(t.Minute())<<5 | uint16(t.Hour())<<11
	dt := uint16(t.Day()) | uint16(t.Month())<<5 | uint16(t.Year()-1980)<<9
	return fatTimestamp{time: tm, date: dt}
}
