package iso9660

import (
	"time"

	"go.uber.org/zap"
)

// Builder accumulates a file tree and boot configuration, then renders a
// complete ISO 9660 image (optionally El Torito-bootable, optionally
// isohybrid) to a Sink in a single Build call.
type Builder struct {
	tree   *Tree
	opts   *Options
	boot   *BootConfig
	hybrid bool
	log    *zap.Logger

	espBytes []byte // populated by Build when hybrid, for diagnostics/tests
}

// NewBuilder returns an empty Builder. A nil opts uses DefaultOptions(); a
// nil logger discards diagnostics.
func NewBuilder(opts *Options, logger *zap.Logger) *Builder {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{tree: NewEmptyTree(), opts: opts, log: logger}
}

// AddFile attaches src at the given ISO destination path, creating any
// missing intermediate directories. See Tree.AddFile for normalization and
// duplicate-handling rules.
func (b *Builder) AddFile(dst string, src Source) error {
	if err := b.tree.AddFile(dst, src); err != nil {
		b.log.Debug("AddFile rejected", zap.String("dst", dst), zap.Error(err))
		return err
	}
	return nil
}

// SetBootConfig installs the BIOS/UEFI boot configuration. Pass nil to
// build a non-bootable image.
func (b *Builder) SetBootConfig(boot *BootConfig) { b.boot = boot }

// SetIsoHybrid enables isohybrid (MBR+GPT, FAT32 ESP) output. It requires a
// UEFI boot configuration to be set before Build runs.
func (b *Builder) SetIsoHybrid(hybrid bool) { b.hybrid = hybrid }

// ESPBytes returns the FAT32 ESP volume materialized by the most recent
// Build call, or nil if the image was not built hybrid.
func (b *Builder) ESPBytes() []byte { return b.espBytes }

// ESPOverride lets a caller pin ESP placement and/or size when embedding
// this image inside an outer container format that has already reserved
// space for it, instead of accepting the layout planner's defaults (a
// fixed start LBA, and the FAT32 builder's natural size). This is the Go
// shape of the builder's esp_lba_override/esp_size_sectors_override.
type ESPOverride struct {
	// LBA overrides the ISO 9660 2048-byte logical block the ESP starts
	// at. Nil keeps the default, ESPStartLBA.
	LBA *uint32
	// SizeSectors overrides the ESP's total size, in 512-byte sectors. It
	// must be at least MinESPSectors512 and at least large enough to hold
	// the materialized FAT32 volume; the ESP is zero-padded out to this
	// size. Nil keeps the FAT32 builder's natural size.
	SizeSectors *uint32
}

// Build lays out and writes the full image to sink. espOverride may be nil
// to accept the layout planner's default ESP placement and size.
func (b *Builder) Build(sink Sink, espOverride *ESPOverride) error {
	when := b.opts.Timestamp
	if when.IsZero() {
		when = time.Now().UTC()
	}

	if b.boot.hasBoot() {
		if b.boot.Bios != nil {
			if err := b.ensureBootImageInTree(b.boot.Bios.DestinationInISO, b.boot.Bios.BootImage); err != nil {
				return err
			}
		}
		if b.boot.Uefi != nil {
			if err := b.ensureBootImageInTree(b.boot.Uefi.DestinationInISO, b.boot.Uefi.BootImage); err != nil {
				return err
			}
		}
	}

	var espBytes []byte
	if b.hybrid {
		if b.boot == nil || b.boot.Uefi == nil {
			return invalidInputf("Build", "isohybrid output requires a UEFI boot configuration")
		}
		eb, err := buildESP(b.boot.Uefi, when)
		if err != nil {
			return err
		}
		if espOverride != nil && espOverride.SizeSectors != nil {
			eb, err = applyESPSizeOverride(eb, *espOverride.SizeSectors)
			if err != nil {
				return err
			}
		}
		espBytes = eb
	}

	p, err := planLayout(b.tree, b.boot, b.hybrid, espBytes, espOverride)
	if err != nil {
		return err
	}
	b.log.Info("layout computed",
		zap.Uint32("totalSectors", p.TotalSectors),
		zap.Bool("hybrid", b.hybrid),
		zap.Int("directories", len(p.Dirs)),
		zap.Int("files", len(p.Files)),
	)

	if err := writeImage(sink, b.opts, b.boot, p, when); err != nil {
		b.log.Error("write failed", zap.Error(err))
		return err
	}
	b.espBytes = espBytes
	return nil
}

// ensureBootImageInTree adds src at dst unless something is already there,
// which happens when the caller's regular files list already placed the
// same boot image at this destination (see Tree.AddFile's idempotent
// re-add check for the identical-source case).
func (b *Builder) ensureBootImageInTree(dst string, src Source) error {
	if dst == "" || src == nil {
		return nil
	}
	if _, ok := b.tree.Lookup(dst); ok {
		return nil
	}
	return b.tree.AddFile(dst, src)
}
