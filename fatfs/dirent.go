package fatfs

import "encoding/binary"

// direntSize is the size of one on-disk 32-byte directory entry (spec §3).
const direntSize = 32

// Attribute bits (spec §3).
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLFNMask   = 0x0F
)

const (
	entryDeleted = 0xE5
	entryEnd     = 0x00
)

// rawEntry is a 32-byte directory entry, not yet classified as short-name
// or LFN.
type rawEntry [direntSize]byte

func (e rawEntry) isFree() bool { return e[0] == entryEnd }
func (e rawEntry) isDeleted() bool { return e[0] == entryDeleted }
func (e rawEntry) attribute() byte { return e[11] }
func (e rawEntry) isLFN() bool     { return e.attribute()&AttrLFNMask == AttrLFNMask }

// ShortDirent is the decoded short-name form of a directory entry (spec §3
// "Short-name entry").
type ShortDirent struct {
	ShortName  string // 8.3 form, trailing spaces trimmed, e.g. "HELLOW~1.TXT"
	NameField8 string // raw, space-padded bytes 0..8, for spec §4.F short-name matching
	Attributes byte
	Cluster    uint32
	FileSize   uint32
}

// MatchesShortName implements the spec §4.F short-name match rule: name is
// padded to an 8-character field and compared against bytes 0..8 of the
// entry, and is only attempted when len(name) < 9 — this excludes the
// extension, flagged in spec §9 item 5 as kept for back-compatibility.
func (d ShortDirent) MatchesShortName(name string) bool {
	if len(name) >= 9 {
		return false
	}
	padded := name
	for len(padded) < 8 {
		padded += " "
	}
	return d.NameField8 == padded
}

func (e rawEntry) firstCluster() uint32 {
	hi := binary.LittleEndian.Uint16(e[20:22])
	lo := binary.LittleEndian.Uint16(e[26:28])
	return uint32(hi)<<16 | uint32(lo)
}

func (e rawEntry) fileSize() uint32 {
	return binary.LittleEndian.Uint32(e[28:32])
}

// shortNameField renders bytes 0..11 (name+extension) as the 8.3 string,
// trimming trailing spaces from each part independently and joining with a
// dot unless the extension is empty.
func (e rawEntry) shortNameField() string {
	name := trimTrailingSpaces(e[0:8])
	ext := trimTrailingSpaces(e[8:11])
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func trimTrailingSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

func (e rawEntry) toShortDirent() ShortDirent {
	return ShortDirent{
		ShortName:  e.shortNameField(),
		NameField8: string(e[0:8]),
		Attributes: e.attribute(),
		Cluster:    e.firstCluster(),
		FileSize:   e.fileSize(),
	}
}

// IsDirectory reports whether the entry's attributes mark it a directory.
func (d ShortDirent) IsDirectory() bool { return d.Attributes&AttrDirectory != 0 }
