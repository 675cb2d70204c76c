package iso9660

// Plan is the output of a single layout pass: every structure's logical
// block address and extent length, fixed before any bytes are written. The
// writer is a pure consumer of a Plan; it never makes allocation decisions
// itself.
type Plan struct {
	Hybrid bool

	PVDLBA         uint32
	BootRecordLBA  uint32 // 0 if no boot configuration
	TerminatorLBA  uint32
	BootCatalogLBA uint32 // 0 if no boot configuration

	PathTableLLBA  uint32
	PathTableMLBA  uint32
	PathTableBytes uint32

	RootLBA uint32
	RootLen uint32

	// ESPLBA/ESPSectors are in 2048-byte logical blocks, hybrid only.
	ESPLBA     uint32
	ESPSectors uint32
	ESPBytes   []byte // the fully materialized FAT32 volume, hybrid only

	// Dirs and Files are every directory (root first) and file node in a
	// single flat depth-first preorder traversal, with LBA and (for
	// directories) ExtentLen already assigned. Directory extents are written
	// in this order.
	Dirs  []*FsNode
	Files []*FsNode

	// PathTableDirs holds the same directories as Dirs, reordered
	// breadth-first (root, then every directory one level down, then two
	// levels down, ...). The path tables list directories in this order and
	// pathNumber is assigned from it, per ECMA-119 9.4's directory-number
	// ordering.
	PathTableDirs []*FsNode

	// VolumeSpaceSize is the PVD's declared logical block count: every
	// block belonging to the ISO 9660 filesystem proper, excluding the
	// trailing GPT backup region.
	VolumeSpaceSize uint32

	// GPTBackupLBA is the logical block at which the trailing GPT backup
	// header + partition array begins, hybrid only. It always lands past
	// VolumeSpaceSize.
	GPTBackupLBA uint32

	// TotalSectors is the full image size in 2048-byte logical blocks,
	// including the GPT backup region when hybrid.
	TotalSectors uint32
}

const maxPathTableBytes = SectorSize

// espBytesPerSectorForGPT is the GPT/MBR native logical block size (always
// 512, independent of the ISO 9660 2048-byte logical block size).
const espBytesPerSectorForGPT = 512

// planLayout performs the single allocation pass: system area, volume
// descriptors, boot catalog, path tables, optional ESP padding/extent, then
// a depth-first walk assigning directory extents and finally file extents.
// espOverride, when non-nil, pins the ESP start LBA to a caller-chosen
// value instead of the fixed ESPStartLBA default (spec's
// esp_lba_override); its size field is not consulted here, since the
// caller has already baked any esp_size_sectors_override into the length
// of espBytes before calling planLayout.
func planLayout(tree *Tree, boot *BootConfig, hybrid bool, espBytes []byte, espOverride *ESPOverride) (*Plan, error) {
	p := &Plan{Hybrid: hybrid}

	dirs, files := flattenDFS(tree.Root)
	p.Dirs, p.Files = dirs, files

	ptDirs := breadthFirstDirs(tree.Root)
	assignPathNumbers(ptDirs)
	p.PathTableDirs = ptDirs

	// The protective MBR + GPT header + partition array (hybrid only) fit
	// inside the first 16 logical blocks (64 512-byte sectors) reserved as
	// the ECMA-119 system area, so the PVD always lands at LBA 16 whether
	// or not the image is hybrid.
	lba := uint32(SystemAreaSectorsPlain)
	p.PVDLBA = lba
	lba++

	hasBoot := boot.hasBoot()
	if hasBoot {
		p.BootRecordLBA = lba
		lba++
	}

	p.TerminatorLBA = lba
	lba++

	if hasBoot {
		p.BootCatalogLBA = lba
		lba++
	}

	ptBytes, err := pathTableBytes(ptDirs)
	if err != nil {
		return nil, err
	}
	if len(ptBytes) > maxPathTableBytes {
		return nil, invalidInputf("planLayout", "path table is %d bytes, exceeds the %d byte single-extent limit", len(ptBytes), maxPathTableBytes)
	}
	p.PathTableBytes = uint32(len(ptBytes))

	p.PathTableLLBA = lba
	lba++
	p.PathTableMLBA = lba
	lba++

	if hybrid {
		if espBytes == nil {
			return nil, invalidInputf("planLayout", "hybrid image requires a materialized ESP volume")
		}
		espLBA := uint32(ESPStartLBA)
		if espOverride != nil && espOverride.LBA != nil {
			espLBA = *espOverride.LBA
		}
		if lba > espLBA {
			return nil, invalidInputf("planLayout", "volume descriptor area overruns the ESP start LBA %d", espLBA)
		}
		lba = espLBA
		p.ESPLBA = lba
		p.ESPSectors = sectorsForBytes(int64(len(espBytes)))
		if p.ESPSectors == 0 {
			p.ESPSectors = 1
		}
		p.ESPBytes = espBytes
		lba += p.ESPSectors
	}

	for _, d := range dirs {
		entries, err := directoryEntries(d)
		if err != nil {
			return nil, err
		}
		extentLen, err := directoryExtentSize(entries)
		if err != nil {
			return nil, err
		}
		d.LBA = lba
		d.ExtentLen = extentLen
		lba += sectorsForBytes(int64(extentLen))
	}
	p.RootLBA = dirs[0].LBA
	p.RootLen = dirs[0].ExtentLen

	for _, f := range files {
		f.LBA = lba
		if f.Size > 0 {
			lba += sectorsForBytes(f.Size)
		} else {
			lba++ // a zero-length file still occupies a nominal one-block extent
		}
	}

	p.VolumeSpaceSize = lba
	p.TotalSectors = lba

	if hybrid {
		p.GPTBackupLBA = lba
		backupBlocks := sectorsForBytes(int64(GPTBackupSectors * espBytesPerSectorForGPT))
		p.TotalSectors = lba + backupBlocks
	}

	return p, nil
}

// flattenDFS returns every directory (including root, first) and every file
// reachable from root, each in a single preorder depth-first traversal that
// visits a directory's children in insertion order: all of a directory's
// immediate subdirectories are recursed into before its siblings, and files
// are recorded in the same relative order they were added.
func flattenDFS(root *FsNode) (dirs []*FsNode, files []*FsNode) {
	var walk func(n *FsNode)
	walk = func(n *FsNode) {
		dirs = append(dirs, n)
		var childDirs []*FsNode
		for _, c := range n.ChildrenInInsertOrder() {
			if c.Kind == KindDirectory {
				childDirs = append(childDirs, c)
			} else {
				files = append(files, c)
			}
		}
		for _, cd := range childDirs {
			walk(cd)
		}
	}
	walk(root)
	return dirs, files
}

// breadthFirstDirs returns every directory reachable from root (including
// root) in level order: root, then every directory one level down in
// insertion order, then every directory two levels down, and so on. This is
// the order ECMA-119 9.4 requires path table records to appear in, distinct
// from the depth-first order directory extents are laid out in.
func breadthFirstDirs(root *FsNode) []*FsNode {
	var out []*FsNode
	queue := []*FsNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, c := range n.ChildrenInInsertOrder() {
			if c.Kind == KindDirectory {
				queue = append(queue, c)
			}
		}
	}
	return out
}

// assignPathNumbers numbers every directory in dirs (root first) with its
// 1-based path-table directory number in the order the caller provides
// them in. Because dirs is already level-ordered (breadthFirstDirs), a
// parent's number is always smaller than any of its descendants', which
// ECMA-119 9.4 requires of the parent directory number field.
func assignPathNumbers(dirs []*FsNode) {
	for i, d := range dirs {
		d.pathNumber = uint16(i + 1)
	}
}
