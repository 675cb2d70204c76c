package iso9660

import "time"

// Options configures volume-level identification fields and test hooks.
type Options struct {
	VolumeIdentifier        string // PVD, max 32 d-characters. Default "FULLERENE".
	SystemIdentifier        string // PVD, max 32 a-characters.
	PublisherIdentifier     string // PVD, max 128 a-characters.
	DataPreparerIdentifier  string // PVD, max 128 a-characters.
	ApplicationIdentifier   string // PVD, max 128 a-characters.

	// Timestamp pins the PVD/boot-sector timestamps and, for hybrid images,
	// is folded into the FAT32 volume serial number. Zero means "use the
	// time Build is called", which is the default and is what makes two
	// builds differ byte-for-byte (see spec.md §8 Idempotence). Tests that
	// need bit-identical output across runs set this explicitly.
	Timestamp time.Time

	// DiskGUID and ESPGUID pin the hybrid image's GPT disk and ESP
	// partition GUIDs. Nil means "generate a random v4 GUID", the default.
	// Tests that need bit-identical hybrid output pin these.
	DiskGUID *[16]byte
	ESPGUID  *[16]byte
}

// DefaultOptions returns an Options with the library's conventional
// identifiers.
func DefaultOptions() *Options {
	return &Options{
		VolumeIdentifier:       "FULLERENE",
		SystemIdentifier:       "",
		PublisherIdentifier:    "FULLERENISO",
		DataPreparerIdentifier: "",
		ApplicationIdentifier:  "FULLERENISO",
	}
}

// BiosBootConfig describes a legacy BIOS (El Torito, no-emulation) boot
// entry.
type BiosBootConfig struct {
	// BootCatalog is a virtual destination used only for labeling the
	// section header's identifier string; it is never materialized as a
	// file in the image.
	BootCatalog string
	// BootImage is the boot loader's byte content (e.g. isolinux.bin).
	BootImage Source
	// DestinationInISO is the visible ISO path the boot image is written
	// to, e.g. "isolinux/isolinux.bin".
	DestinationInISO string
}

// UefiBootConfig describes a UEFI boot entry. In hybrid mode, BootImage and
// KernelImage are additionally embedded into the FAT32 ESP as
// EFI/BOOT/BOOTX64.EFI and EFI/BOOT/KERNEL.EFI respectively.
type UefiBootConfig struct {
	BootImage        Source
	KernelImage      Source
	DestinationInISO string
}

// BootConfig aggregates the optional BIOS and UEFI boot configurations.
// At least one of Bios or Uefi must be non-nil for a boot catalog to be
// written.
type BootConfig struct {
	Bios *BiosBootConfig
	Uefi *UefiBootConfig
}

func (c *BootConfig) hasBoot() bool {
	return c != nil && (c.Bios != nil || c.Uefi != nil)
}
