// Package fatfs implements the read-only FAT32 directory-traversal and
// file-access core (spec §4.B–G): volume geometry loading, cluster-chain
// following, the directory-entry stream, long-filename reassembly, the
// directory navigator, and the file reader. It consumes sectors through the
// SectorReader capability rather than owning a transport, so it can sit on
// top of the transport package or any other block source (spec §6).
package fatfs

import (
	"encoding/binary"

	sdferrors "github.com/avrtools/sdfat32/errors"
)

// SectorReader is the external capability consumed by the directory layer
// (spec §6 "sector_read"): a synchronous, blocking read of one 512-byte
// sector.
type SectorReader interface {
	ReadSector(lba uint32, out *[512]byte) error
}

// BootSectorFinder locates the LBA of the volume's boot sector (spec §6);
// out of scope for this core, consumed as an abstract capability.
type BootSectorFinder func() (uint32, bool)

const bytesPerSectorRequired = 512

var sectorsPerClusterValid = map[uint8]bool{
	1: true, 2: true, 4: true, 8: true, 16: true, 32: true, 64: true, 128: true,
}

// Geometry is the BIOS Parameter Block, immutable after LoadBPB returns
// (spec §3).
type Geometry struct {
	BootSectorLBA       uint32
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	NumFATs             uint8
	FATSizeSectors      uint32
	RootCluster         uint32

	// DataRegionFirstSector is derived: BootSectorLBA + ReservedSectorCount +
	// NumFATs*FATSizeSectors.
	DataRegionFirstSector uint32
}

// LoadBPB reads the boot sector found by find and validates it against the
// invariants in spec §3/§4.B. All structural violations are collected
// (§3 AMBIENT STACK) so a single failure reports every broken invariant, not
// just the first one checked; the returned error is still the highest
// priority discrete SDFatError for callers that switch on error identity.
func LoadBPB(sectors SectorReader, find BootSectorFinder) (*Geometry, error) {
	lba, found := find()
	if !found {
		return nil, sdferrors.ErrBootSectorNotFound
	}

	var sector [512]byte
	if err := sectors.ReadSector(lba, &sector); err != nil {
		return nil, sdferrors.ErrBootSectorNotFound.WrapError(err)
	}

	var faults sdferrors.FaultCollector

	if sector[510] != 0x55 || sector[511] != 0xAA {
		faults.Add(sdferrors.ErrNotBootSector)
	}

	bytesPerSector := binary.LittleEndian.Uint16(sector[11:13])
	if bytesPerSector != bytesPerSectorRequired {
		faults.Add(sdferrors.ErrInvalidBytesPerSector)
	}

	sectorsPerCluster := sector[13]
	if !sectorsPerClusterValid[sectorsPerCluster] {
		faults.Add(sdferrors.ErrInvalidSectorsPerCluster)
	}

	if faults.Len() > 0 {
		primary := sdferrors.ErrInvalidSectorsPerCluster
		if bytesPerSector != bytesPerSectorRequired {
			primary = sdferrors.ErrInvalidBytesPerSector
		}
		if sector[510] != 0x55 || sector[511] != 0xAA {
			primary = sdferrors.ErrNotBootSector
		}
		return nil, faults.WrapPrimary(primary)
	}

	reservedSectors := binary.LittleEndian.Uint16(sector[14:16])
	numFATs := sector[16]
	fatSizeSectors := binary.LittleEndian.Uint32(sector[36:40])
	rootCluster := binary.LittleEndian.Uint32(sector[44:48])

	geom := &Geometry{
		BootSectorLBA:       lba,
		BytesPerSector:      bytesPerSector,
		SectorsPerCluster:   sectorsPerCluster,
		ReservedSectorCount: reservedSectors,
		NumFATs:             uint8(numFATs),
		FATSizeSectors:      fatSizeSectors,
		RootCluster:         rootCluster,
	}
	geom.DataRegionFirstSector = lba + uint32(reservedSectors) + uint32(numFATs)*fatSizeSectors
	return geom, nil
}

// DirentsPerCluster returns how many 32-byte directory entries fit in one
// cluster of this volume.
func (g *Geometry) DirentsPerCluster() int {
	return int(g.SectorsPerCluster) * (int(g.BytesPerSector) / direntSize)
}

// FirstSectorOfCluster returns the LBA of the first sector of cluster.
func (g *Geometry) FirstSectorOfCluster(cluster uint32) uint32 {
	return g.DataRegionFirstSector + (cluster-2)*uint32(g.SectorsPerCluster)
}
