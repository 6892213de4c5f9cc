package fatfs

import (
	"encoding/binary"
	"strings"

	sdferrors "github.com/avrtools/sdfat32/errors"
)

const illegalNameChars = `\/:*?"<>|`

// Cursor is the mutable "current directory" state (spec §3): first cluster
// plus bounded short/long name and parent-path state. Cursor is a value
// type (spec §9 "Cursor as value type"): Cd builds a new Cursor and swaps
// it into the navigator only on success, leaving the current one untouched
// on failure, giving transactional semantics for free.
type Cursor struct {
	FirstCluster    uint32
	ShortName       string
	LongName        string
	ShortParentPath string
	LongParentPath  string
}

// RootCursor builds the cursor for the volume root (spec §3 invariant:
// FirstCluster == RootCluster iff LongName == "/" and LongParentPath == "").
func RootCursor(rootCluster uint32) Cursor {
	return Cursor{FirstCluster: rootCluster, ShortName: "/", LongName: "/"}
}

// Navigator drives Cd/List/ReadFile against a volume (spec §4.F/§4.G). It
// holds no cached sector state between calls; each operation opens a fresh
// direntStream.
type Navigator struct {
	geom    *Geometry
	sectors SectorReader
	cursor  Cursor
}

// NewNavigator creates a Navigator positioned at the volume root.
func NewNavigator(geom *Geometry, sectors SectorReader) *Navigator {
	return &Navigator{geom: geom, sectors: sectors, cursor: RootCursor(geom.RootCluster)}
}

// Cursor returns the navigator's current position.
func (n *Navigator) Cursor() Cursor { return n.cursor }

// isLegalName implements the spec §4.F pre-check.
func isLegalName(name string) bool {
	if name == "" || name[0] == ' ' {
		return false
	}
	if strings.ContainsAny(name, illegalNameChars) {
		return false
	}
	if strings.Trim(name, " ") == "" {
		return false
	}
	return true
}

// Cd resolves name against the current directory (spec §4.F). On success it
// mutates the navigator's cursor and returns nil; on failure the cursor is
// left untouched (atomic-on-success, spec §7).
func (n *Navigator) Cd(name string) error {
	if name == "." {
		return nil
	}
	if name == ".." {
		next, err := n.cdParent()
		if err != nil {
			return err
		}
		n.cursor = next
		return nil
	}

	if !isLegalName(name) {
		return sdferrors.ErrInvalidDirName
	}

	stream, err := newDirentStream(n.geom, n.sectors, n.cursor.FirstCluster)
	if err != nil {
		return err
	}

	for {
		entry, err := stream.Next()
		if err == sdferrors.ErrEndOfDirectory {
			return sdferrors.ErrEndOfDirectory
		}
		if err != nil {
			return err
		}

		matched := false
		if entry.LongName != "" {
			matched = entry.LongName == name
		} else {
			matched = entry.Short.MatchesShortName(name)
		}
		if !matched {
			continue
		}
		if !entry.Short.IsDirectory() {
			return sdferrors.ErrFileNotFound
		}

		n.cursor = n.promote(entry)
		return nil
	}
}

// promote builds the cursor for descending into a matched child directory
// (spec §4.F "On match whose target is a directory").
func (n *Navigator) promote(entry foundEntry) Cursor {
	cur := n.cursor
	longParent := cur.LongParentPath + cur.LongName
	if cur.LongName != "/" {
		longParent += "/"
	}

	shortParent := cur.ShortParentPath + cur.ShortName
	if cur.ShortName != "/" {
		shortParent += "/"
	}

	longName := entry.LongName
	if longName == "" {
		longName = entry.Short.ShortName
	}

	return Cursor{
		FirstCluster:    entry.Short.Cluster,
		ShortName:       entry.Short.ShortName,
		LongName:        longName,
		ShortParentPath: shortParent,
		LongParentPath:  longParent,
	}
}

// cdParent implements spec §4.F `cd ".."`.
func (n *Navigator) cdParent() (Cursor, error) {
	if n.cursor.FirstCluster == n.geom.RootCluster {
		return n.cursor, nil
	}

	lba := n.geom.FirstSectorOfCluster(n.cursor.FirstCluster)
	var sector [sectorSize]byte
	if err := n.sectors.ReadSector(lba, &sector); err != nil {
		return Cursor{}, err
	}

	// The ".." entry occupies the second 32-byte slot (offset 32). Its
	// cluster is encoded at absolute bytes 52-53 (high word) and 58-59
	// (low word), per spec §3's on-disk layout.
	high := binary.LittleEndian.Uint16(sector[52:54])
	low := binary.LittleEndian.Uint16(sector[58:60])
	parentCluster := uint32(high)<<16 | uint32(low)

	if parentCluster == 0 {
		return RootCursor(n.geom.RootCluster), nil
	}

	longParent, longName := splitLastSegment(n.cursor.LongParentPath)
	shortParent, shortName := splitLastSegment(n.cursor.ShortParentPath)

	return Cursor{
		FirstCluster:    parentCluster,
		ShortName:       shortName,
		LongName:        longName,
		ShortParentPath: shortParent,
		LongParentPath:  longParent,
	}, nil
}

// splitLastSegment pops the last "/"-delimited segment off path, returning
// the remainder and the popped segment, for promoting a parent segment into
// the current name on `cd ..` (spec §4.F). path is in the trailing-slash
// form promote builds (e.g. "/A/"); the remainder keeps its trailing slash.
func splitLastSegment(path string) (remainder, last string) {
	trimmed := strings.TrimSuffix(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", trimmed
	}
	return trimmed[:idx+1], trimmed[idx+1:]
}

// List enumerates the live entries of the current directory (spec
// SPEC_FULL.md §5, restoring FAT_PrintCurrentDirectory from
// original_source/source/FAT.c). It is read-only and does not move the
// cursor.
func (n *Navigator) List() ([]foundEntry, error) {
	stream, err := newDirentStream(n.geom, n.sectors, n.cursor.FirstCluster)
	if err != nil {
		return nil, err
	}

	var out []foundEntry
	for {
		entry, err := stream.Next()
		if err == sdferrors.ErrEndOfDirectory {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
}

// Stat resolves name in the current directory without moving the cursor,
// for callers (the file reader, the CLI) that need the matched entry's
// cluster/size/attributes.
func (n *Navigator) Stat(name string) (foundEntry, error) {
	if !isLegalName(name) {
		return foundEntry{}, sdferrors.ErrInvalidDirName
	}

	stream, err := newDirentStream(n.geom, n.sectors, n.cursor.FirstCluster)
	if err != nil {
		return foundEntry{}, err
	}

	for {
		entry, err := stream.Next()
		if err == sdferrors.ErrEndOfDirectory {
			return foundEntry{}, sdferrors.ErrFileNotFound
		}
		if err != nil {
			return foundEntry{}, err
		}

		matched := entry.LongName == name
		if !matched && entry.LongName == "" {
			matched = entry.Short.MatchesShortName(name)
		}
		if matched {
			return entry, nil
		}
	}
}
