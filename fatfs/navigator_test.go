package fatfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdferrors "github.com/avrtools/sdfat32/errors"
	"github.com/avrtools/sdfat32/fatfs"
)

func loadGeometry(t *testing.T, b *imageBuilder) *fatfs.Geometry {
	t.Helper()
	geom, err := fatfs.LoadBPB(b.reader(), b.finder(0))
	require.NoError(t, err)
	return geom
}

// S1 — LFN entry in one sector: a file with a long name that fits in a
// single LFN sub-entry, found by long name, and correctly rejected by Cd
// (it's a file, not a directory).
func TestLFNInOneSector(t *testing.T) {
	b := newImageBuilder(8)
	root := b.clusterSector(2)

	writeLFNEntry(root, 0, 1, true, "hello.txt")
	writeShortEntry(root, 32, "HELLO   ", "TXT", 0x20, 5, 123)

	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	entries, err := nav.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", entries[0].LongName)
	assert.Equal(t, "HELLO.TXT", entries[0].Short.ShortName)
	assert.Equal(t, uint32(123), entries[0].Short.FileSize)

	err = nav.Cd("hello.txt")
	assert.ErrorIs(t, err, sdferrors.ErrFileNotFound)
}

// S2 — an LFN chain spans a cluster boundary: the last entry of cluster 2 is
// LFN ordinal 2, and cluster 3 opens with LFN ordinal 1 followed by the
// short-name entry.
func TestLFNSpansClusterBoundary(t *testing.T) {
	b := newImageBuilder(8)
	root := b.clusterSector(2)
	next := b.clusterSector(3)

	// Slots before 480 are marked deleted so the zero terminator does not
	// end the directory before the chain is reached.
	for off := 0; off < 480; off += 32 {
		root[off] = 0xE5
	}
	// Ordinal 1 carries the first 13 characters, ordinal 2 the rest.
	writeLFNEntry(root, 480, 2, true, "name")
	writeLFNEntry(next, 0, 1, false, "longdirectory")
	writeShortEntry(next, 32, "LONGDI~1", "", 0x10, 4, 0)

	b.setFATEntry(2, 3)
	b.setFATEntry(3, fatfs.EndOfChainMin)

	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	require.NoError(t, nav.Cd("longdirectoryname"))
	assert.Equal(t, uint32(4), nav.Cursor().FirstCluster)
	assert.Equal(t, "longdirectoryname", nav.Cursor().LongName)
}

// Missing ordinal-1 entry in a chain is corruption, not silent failure.
func TestLFNMissingOrdinalOneIsCorrupt(t *testing.T) {
	b := newImageBuilder(8)
	root := b.clusterSector(2)
	// ordinal 2 claims a 2-entry chain, but only a short entry follows —
	// the would-be ordinal-1 slot is in fact the short entry itself.
	writeLFNEntry(root, 0, 2, true, "brokenchain")
	writeShortEntry(root, 32, "BROKEN~1", "TXT", 0x20, 5, 0)

	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	_, err := nav.List()
	assert.ErrorIs(t, err, sdferrors.ErrCorruptFATEntry)
}

// S3 — the directory terminator ends iteration after the live entries.
func TestEmptyDirectoryTerminator(t *testing.T) {
	b := newImageBuilder(8)
	root := b.clusterSector(2)

	writeShortEntry(root, 0, "ONE     ", "TXT", 0x20, 10, 1)
	writeShortEntry(root, 32, "TWO     ", "TXT", 0x20, 11, 2)
	writeShortEntry(root, 64, "THREE   ", "TXT", 0x20, 12, 3)
	// root[96] left zeroed: byte 0 == 0x00 terminates the directory.

	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	entries, err := nav.List()
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

// S4 — `cd ..` from a nested directory restores the parent's cluster and
// name/path state.
func TestCdParentFromNestedDir(t *testing.T) {
	b := newImageBuilder(8)
	root := b.clusterSector(2)
	dirA := b.clusterSector(3)
	dirB := b.clusterSector(4)

	writeShortEntry(root, 0, "A       ", "", fatfs.AttrDirectory, 3, 0)

	writeShortEntry(dirA, 0, ".       ", "", fatfs.AttrDirectory, 3, 0)
	writeShortEntry(dirA, 32, "..      ", "", fatfs.AttrDirectory, 0, 0) // parent is root
	writeShortEntry(dirA, 64, "B       ", "", fatfs.AttrDirectory, 4, 0)

	writeShortEntry(dirB, 0, ".       ", "", fatfs.AttrDirectory, 4, 0)
	writeShortEntry(dirB, 32, "..      ", "", fatfs.AttrDirectory, 3, 0) // parent is A

	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	require.NoError(t, nav.Cd("A"))
	require.NoError(t, nav.Cd("B"))
	require.NoError(t, nav.Cd(".."))

	cur := nav.Cursor()
	assert.Equal(t, uint32(3), cur.FirstCluster)
	assert.Equal(t, "A", cur.LongName)
	assert.Equal(t, "/", cur.LongParentPath)
}

// Invariant 3/4: cd(name) then cd("..") returns to the identical starting
// state, and cd(".") is the identity.
func TestCdRoundTripAndDotIsIdentity(t *testing.T) {
	b := newImageBuilder(8)
	root := b.clusterSector(2)
	dirA := b.clusterSector(3)

	writeShortEntry(root, 0, "A       ", "", fatfs.AttrDirectory, 3, 0)
	writeShortEntry(dirA, 0, ".       ", "", fatfs.AttrDirectory, 3, 0)
	writeShortEntry(dirA, 32, "..      ", "", fatfs.AttrDirectory, 0, 0)

	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	before := nav.Cursor()
	require.NoError(t, nav.Cd("."))
	assert.Equal(t, before, nav.Cursor())

	require.NoError(t, nav.Cd("A"))
	require.NoError(t, nav.Cd(".."))
	assert.Equal(t, before, nav.Cursor())
}

// S6 — an illegal name is rejected before any I/O-visible state change.
func TestCdIllegalName(t *testing.T) {
	b := newImageBuilder(8)
	geom := loadGeometry(t, b)
	nav := fatfs.NewNavigator(geom, b.reader())

	before := nav.Cursor()
	err := nav.Cd("foo/bar")
	assert.ErrorIs(t, err, sdferrors.ErrInvalidDirName)
	assert.Equal(t, before, nav.Cursor())
}

func TestLoadBPBRejectsBadSignature(t *testing.T) {
	b := newImageBuilder(4)
	b.raw[510] = 0x00
	_, err := fatfs.LoadBPB(b.reader(), b.finder(0))
	assert.ErrorIs(t, err, sdferrors.ErrNotBootSector)
}

func TestLoadBPBAggregatesMultipleFaults(t *testing.T) {
	b := newImageBuilder(4)
	b.raw[510] = 0x00 // bad signature
	b.raw[13] = 3      // invalid sectors per cluster
	_, err := fatfs.LoadBPB(b.reader(), b.finder(0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 invariant(s) violated")
}
