package fatfs

import "encoding/binary"

const fatEntriesPerSector = 512 / 4

// EndOfChainMin is the lowest FAT32 cluster value, after masking the
// reserved high nibble, that denotes end-of-chain. spec §9 item 2: the
// source compares against a single END_OF_CLUSTER constant; this core
// instead tests the whole end-of-chain range, which is the behavior
// documented in spec §3/§9.
const EndOfChainMin uint32 = 0x0FFFFFF8

// reservedNibbleMask clears the top 4 reserved bits of a FAT32 entry before
// comparison.
const reservedNibbleMask uint32 = 0x0FFFFFFF

// IsEndOfChain reports whether a raw (unmasked) FAT32 entry denotes the end
// of a cluster chain.
func IsEndOfChain(entry uint32) bool {
	return (entry & reservedNibbleMask) >= EndOfChainMin
}

// NextCluster returns the FAT entry that follows cur (spec §4.C). The
// caller compares the result with IsEndOfChain. The FAT sector LBA is
// computed as BootSectorLBA + ReservedSectorCount + (cur / 128); spec §9
// item 1 flags that the original source omits BootSectorLBA, which only
// works when the volume starts at LBA 0 — this core uses the corrected,
// boot-sector-relative form.
func (g *Geometry) NextCluster(sectors SectorReader, cur uint32) (uint32, error) {
	fatIndexSector := cur / fatEntriesPerSector
	byteOffset := 4 * (cur % fatEntriesPerSector)
	fatLBA := g.BootSectorLBA + uint32(g.ReservedSectorCount) + fatIndexSector

	var sector [512]byte
	if err := sectors.ReadSector(fatLBA, &sector); err != nil {
		return 0, err
	}

	return binary.LittleEndian.Uint32(sector[byteOffset : byteOffset+4]), nil
}
