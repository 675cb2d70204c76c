package iso9660

import "time"

// writeImage renders every structure p describes into sink at its planned
// position: volume descriptors, boot catalog and path tables first, then
// (hybrid only) the MBR, GPT primary and backup and the ESP, then directory
// extents and file content. The sink is truncated to the final image size up front so that every
// region the plan leaves untouched (system-area padding, directory-extent
// slack, the gap between path tables and a hybrid ESP) reads back as zero
// without the writer needing to pad it explicitly.
func writeImage(sink Sink, opts *Options, boot *BootConfig, p *Plan, when time.Time) error {
	if err := sink.Truncate(int64(p.TotalSectors) * SectorSize); err != nil {
		return newErr(Io, "writeImage", err)
	}

	rootRec, err := buildRootDirectoryRecord(p.Dirs[0], when)
	if err != nil {
		return err
	}
	pvd, err := buildPrimaryVolumeDescriptor(opts, p, rootRec, when)
	if err != nil {
		return err
	}
	if err := writeAtLBA(sink, p.PVDLBA, pvd); err != nil {
		return err
	}

	hasBoot := boot.hasBoot()
	if hasBoot {
		if err := writeAtLBA(sink, p.BootRecordLBA, buildBootRecordVolumeDescriptor(p.BootCatalogLBA)); err != nil {
			return err
		}
	}
	if err := writeAtLBA(sink, p.TerminatorLBA, buildVolumeDescriptorSetTerminator()); err != nil {
		return err
	}

	if hasBoot {
		var biosNode, uefiNode *FsNode
		if boot.Bios != nil {
			n, ok := findNodeByPath(p.Dirs[0], boot.Bios.DestinationInISO)
			if !ok {
				return invalidInputf("writeImage", "BIOS boot image destination %q not found in tree", boot.Bios.DestinationInISO)
			}
			biosNode = n
		}
		if boot.Uefi != nil {
			n, ok := findNodeByPath(p.Dirs[0], boot.Uefi.DestinationInISO)
			if !ok {
				return invalidInputf("writeImage", "UEFI boot image destination %q not found in tree", boot.Uefi.DestinationInISO)
			}
			if p.Hybrid {
				// In a hybrid image firmware reaches UEFI either through the
				// catalog (optical boot) or by reading the GPT ESP directly
				// (USB boot); point the catalog at the same FAT32 extent the
				// ESP occupies so both paths load identical bytes.
				n = &FsNode{LBA: p.ESPLBA, Size: int64(len(p.ESPBytes))}
			}
			uefiNode = n
		}
		catalog, err := buildBootCatalog(boot, biosNode, uefiNode)
		if err != nil {
			return err
		}
		if err := writeAtLBA(sink, p.BootCatalogLBA, catalog); err != nil {
			return err
		}
	}

	if err := writeAtLBA(sink, p.PathTableLLBA, buildPathTable(p.PathTableDirs, false)); err != nil {
		return err
	}
	if err := writeAtLBA(sink, p.PathTableMLBA, buildPathTable(p.PathTableDirs, true)); err != nil {
		return err
	}

	if p.Hybrid {
		mbr, primaryHeader, primaryEntries, backupHeader, backupEntries, err := buildGPT(p, opts)
		if err != nil {
			return err
		}
		total512 := uint64(p.TotalSectors) * SectorsPerLBA512
		backupArrayStart512 := total512 - 1 - gptBackupArraySectors512
		backupHeaderLBA512 := total512 - 1

		if err := writeAt512(sink, 0, mbr); err != nil {
			return err
		}
		if err := writeAt512(sink, 1, primaryHeader); err != nil {
			return err
		}
		if err := writeAt512(sink, 2, primaryEntries); err != nil {
			return err
		}
		if err := writeAt512(sink, backupArrayStart512, backupEntries); err != nil {
			return err
		}
		if err := writeAt512(sink, backupHeaderLBA512, backupHeader); err != nil {
			return err
		}
		if err := writeAtLBA(sink, p.ESPLBA, p.ESPBytes); err != nil {
			return err
		}
	}

	recTime := formatRecordingTime(when)
	for _, d := range p.Dirs {
		data, err := marshalDirectoryExtent(d, recTime)
		if err != nil {
			return err
		}
		if err := writeAtLBA(sink, d.LBA, data); err != nil {
			return err
		}
	}

	for _, f := range p.Files {
		if err := copySourceToSink(sink, f.Source, int64(f.LBA)*SectorSize); err != nil {
			return err
		}
	}

	return nil
}

func buildRootDirectoryRecord(root *FsNode, when time.Time) ([]byte, error) {
	fields := directoryRecordFields{
		LocationExtent:       root.LBA,
		DataLength:           root.ExtentLen,
		RecordingTime:        formatRecordingTime(when),
		FileFlags:            0x02,
		VolumeSequenceNumber: 1,
	}
	return marshalDirectoryRecord(&fields, []byte{0x00})
}

func findNodeByPath(root *FsNode, dst string) (*FsNode, bool) {
	t := &Tree{Root: root}
	return t.Lookup(dst)
}

func writeAtLBA(sink Sink, lba uint32, data []byte) error {
	if _, err := sink.WriteAt(data, int64(lba)*SectorSize); err != nil {
		return newErr(Io, "writeAtLBA", err)
	}
	return nil
}

func writeAt512(sink Sink, sector uint64, data []byte) error {
	if _, err := sink.WriteAt(data, int64(sector)*espBytesPerSectorForGPT); err != nil {
		return newErr(Io, "writeAt512", err)
	}
	return nil
}
