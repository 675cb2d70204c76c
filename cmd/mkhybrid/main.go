// Command mkhybrid builds an ISO 9660 image, optionally El Torito-bootable
// and optionally isohybrid, from a source directory tree.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/fullereniso/isobuild/iso9660"
)

var (
	inputDirectory  string
	outputPath      string
	volumeID        string
	biosBootImage   string
	uefiBootImage   string
	uefiKernel      string
	hybrid          bool
	verbose         bool
	espLBAOverride  uint
	espSizeOverride uint
)

func main() {
	flag.StringVar(&inputDirectory, "i", "", "source directory to add as the image's root")
	flag.StringVar(&outputPath, "o", "output.iso", "output image path")
	flag.StringVar(&volumeID, "volume-id", "", "override the default volume identifier")
	flag.StringVar(&biosBootImage, "bios-boot", "", "path to a BIOS (El Torito) boot image, e.g. isolinux.bin")
	flag.StringVar(&uefiBootImage, "uefi-boot", "", "path to a UEFI boot image, e.g. bootx64.efi")
	flag.StringVar(&uefiKernel, "uefi-kernel", "", "path to a UEFI kernel image embedded alongside the boot image")
	flag.BoolVar(&hybrid, "hybrid", false, "build an isohybrid image (requires -uefi-boot)")
	flag.BoolVar(&verbose, "v", false, "enable verbose diagnostics")
	flag.UintVar(&espLBAOverride, "esp-lba-override", 0, "pin the ESP start LBA instead of the default (0 = use default)")
	flag.UintVar(&espSizeOverride, "esp-size-sectors-override", 0, "pin the ESP size in 512-byte sectors instead of the natural size (0 = use default)")
	flag.Parse()

	if inputDirectory == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := zap.NewNop()
	if verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("building logger: %v", err)
		}
		logger = l
	}
	defer logger.Sync()

	opts := iso9660.DefaultOptions()
	if volumeID != "" {
		opts.VolumeIdentifier = volumeID
	}

	builder := iso9660.NewBuilder(opts, logger)

	if err := addTree(builder, inputDirectory); err != nil {
		log.Fatalf("adding source tree: %v", err)
	}

	boot, err := bootConfigFromFlags()
	if err != nil {
		log.Fatalf("boot configuration: %v", err)
	}
	builder.SetBootConfig(boot)
	builder.SetIsoHybrid(hybrid)

	sink, err := iso9660.NewFileSink(outputPath)
	if err != nil {
		log.Fatalf("creating output file: %v", err)
	}
	defer sink.Close()

	var espOverride *iso9660.ESPOverride
	if espLBAOverride != 0 || espSizeOverride != 0 {
		espOverride = &iso9660.ESPOverride{}
		if espLBAOverride != 0 {
			lba := uint32(espLBAOverride)
			espOverride.LBA = &lba
		}
		if espSizeOverride != 0 {
			size := uint32(espSizeOverride)
			espOverride.SizeSectors = &size
		}
	}

	if err := builder.Build(sink, espOverride); err != nil {
		log.Fatalf("building image: %v", err)
	}

	fmt.Println("image created:", outputPath)
}

func bootConfigFromFlags() (*iso9660.BootConfig, error) {
	var boot iso9660.BootConfig
	if biosBootImage != "" {
		src, err := newDiskSource(biosBootImage)
		if err != nil {
			return nil, err
		}
		boot.Bios = &iso9660.BiosBootConfig{
			BootCatalog:      "boot.catalog",
			BootImage:        src,
			DestinationInISO: "isolinux/" + filepath.Base(biosBootImage),
		}
	}
	if uefiBootImage != "" {
		src, err := newDiskSource(uefiBootImage)
		if err != nil {
			return nil, err
		}
		uefi := &iso9660.UefiBootConfig{
			BootImage:        src,
			DestinationInISO: "efi/boot/" + filepath.Base(uefiBootImage),
		}
		if uefiKernel != "" {
			ksrc, err := newDiskSource(uefiKernel)
			if err != nil {
				return nil, err
			}
			uefi.KernelImage = ksrc
		}
		boot.Uefi = uefi
	}
	if boot.Bios == nil && boot.Uefi == nil {
		return nil, nil
	}
	return &boot, nil
}

// addTree walks root and adds every regular file under it, using the path
// relative to root (with "/" separators) as the ISO destination.
func addTree(b *iso9660.Builder, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		src, err := newDiskSource(path)
		if err != nil {
			return err
		}
		return b.AddFile(filepath.ToSlash(rel), src)
	})
}

// diskSource adapts a file on the local filesystem to iso9660.Source,
// reopening the file on every ReadAt so the builder can hold many sources
// open at once without exhausting file descriptors.
type diskSource struct {
	path string
	size int64
}

func newDiskSource(path string) (*diskSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &diskSource{path: path, size: info.Size()}, nil
}

func (d *diskSource) Size() int64 { return d.size }

func (d *diskSource) ReadAt(p []byte, off int64) (int, error) {
	f, err := os.Open(d.path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return f.ReadAt(p, off)
}
