package iso9660

import (
	"fmt"
	"time"
)

// volumeDescriptorHeader is the 7-byte header common to every ISO 9660
// Volume Descriptor (ECMA-119 8.1).
type volumeDescriptorHeader struct {
	Type               byte
	StandardIdentifier [5]byte
	Version            byte
}

func (h volumeDescriptorHeader) marshal() []byte {
	buf := make([]byte, 7)
	buf[0] = h.Type
	copy(buf[1:6], h.StandardIdentifier[:])
	buf[6] = h.Version
	return buf
}

var cd001 = [5]byte{'C', 'D', '0', '0', '1'}

// formatVolumeTimestamp encodes t in the 17-byte ECMA-119 8.4.26.1 volume
// descriptor timestamp format: a 16-digit decimal
// (YYYYMMDDHHMMSScc) followed by a signed GMT-offset byte in 15-minute
// intervals. A zero Time produces the all-zero-digit "not specified" form.
func formatVolumeTimestamp(t time.Time) [17]byte {
	var out [17]byte
	for i := range out {
		out[i] = '0'
	}
	if t.IsZero() {
		return out
	}
	s := fmt.Sprintf("%04d%02d%02d%02d%02d%02d%02d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/10000000)
	copy(out[:16], s)
	_, offSec := t.Zone()
	out[16] = byte(offSec / (15 * 60))
	return out
}

// formatRecordingTime encodes t in the 7-byte ECMA-119 9.1.5 directory
// record timestamp format.
func formatRecordingTime(t time.Time) [7]byte {
	var out [7]byte
	if t.IsZero() {
		return out
	}
	out[0] = byte(t.Year() - 1900)
	out[1] = byte(t.Month())
	out[2] = byte(t.Day())
	out[3] = byte(t.Hour())
	out[4] = byte(t.Minute())
	out[5] = byte(t.Second())
	_, offSec := t.Zone()
	out[6] = byte(offSec / (15 * 60))
	return out
}

// buildPrimaryVolumeDescriptor renders the full 2048-byte PVD sector
// (ECMA-119 8.4).
func buildPrimaryVolumeDescriptor(opts *Options, p *Plan, rootRec []byte, when time.Time) ([]byte, error) {
	if len(rootRec) != 34 {
		return nil, invalidInputf("buildPrimaryVolumeDescriptor", "root directory record is %d bytes, expected 34", len(rootRec))
	}

	sec := make([]byte, SectorSize)
	copy(sec[0:7], volumeDescriptorHeader{Type: vdTypePrimary, StandardIdentifier: cd001, Version: 1}.marshal())

	sysID, err := aString(opts.SystemIdentifier, 32)
	if err != nil {
		return nil, err
	}
	volID, err := dString(opts.VolumeIdentifier, 32)
	if err != nil {
		return nil, err
	}
	copy(sec[8:40], sysID)
	copy(sec[40:72], volID)
	// bytes 72-79 unused, zero.

	putU32Both(sec[80:88], p.VolumeSpaceSize)
	// bytes 88-119 escape sequences, unused for a plain PVD, zero.

	putU16Both(sec[120:124], 1) // volume set size
	putU16Both(sec[124:128], 1) // volume sequence number
	putU16Both(sec[128:132], SectorSize)
	putU32Both(sec[132:140], p.PathTableBytes)

	putU32LE(sec[140:144], p.PathTableLLBA)
	putU32LE(sec[144:148], 0) // optional L-type path table, unused
	putU32BE(sec[148:152], p.PathTableMLBA)
	putU32BE(sec[152:156], 0) // optional M-type path table, unused

	copy(sec[156:190], rootRec)

	volSetID, _ := aString("", 128)
	copy(sec[190:318], volSetID)

	pub, err := aString(opts.PublisherIdentifier, 128)
	if err != nil {
		return nil, err
	}
	copy(sec[318:446], pub)

	prep, err := aString(opts.DataPreparerIdentifier, 128)
	if err != nil {
		return nil, err
	}
	copy(sec[446:574], prep)

	app, err := aString(opts.ApplicationIdentifier, 128)
	if err != nil {
		return nil, err
	}
	copy(sec[574:702], app)

	blank37, _ := aString("", 37)
	copy(sec[702:739], blank37) // copyright file identifier
	copy(sec[739:776], blank37) // abstract file identifier
	copy(sec[776:813], blank37) // bibliographic file identifier

	created := formatVolumeTimestamp(when)
	modified := formatVolumeTimestamp(when)
	expires := formatVolumeTimestamp(time.Time{})
	effective := formatVolumeTimestamp(when)
	copy(sec[813:830], created[:])
	copy(sec[830:847], modified[:])
	copy(sec[847:864], expires[:])
	copy(sec[864:881], effective[:])

	sec[881] = 1 // file structure version
	// byte 882 reserved, 883-1394 application use, 1395-2047 reserved: zero.
	return sec, nil
}

// buildBootRecordVolumeDescriptor renders the El Torito Boot Record Volume
// Descriptor (El Torito 2.0 §2.0), pointing at the boot catalog's LBA.
func buildBootRecordVolumeDescriptor(bootCatalogLBA uint32) []byte {
	sec := make([]byte, SectorSize)
	copy(sec[0:7], volumeDescriptorHeader{Type: vdTypeBootRecord, StandardIdentifier: cd001, Version: 1}.marshal())
	copy(sec[7:39], []byte(elToritoSpecID)) // boot system identifier, 32 bytes; zero padded like real El Torito tooling, not space padded
	// bytes 39-70: boot identifier, unused, zero.
	putU32LE(sec[71:75], bootCatalogLBA)
	return sec
}

// buildVolumeDescriptorSetTerminator renders the terminating volume
// descriptor (ECMA-119 8.6.3).
func buildVolumeDescriptorSetTerminator() []byte {
	sec := make([]byte, SectorSize)
	copy(sec[0:7], volumeDescriptorHeader{Type: vdTypeTerminator, StandardIdentifier: cd001, Version: 1}.marshal())
	return sec
}
