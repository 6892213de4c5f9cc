package fatfs_test

import (
	"encoding/binary"

	"github.com/avrtools/sdfat32/fatfs"
	"github.com/avrtools/sdfat32/sdsim"
)

// imageBuilder assembles a tiny, hand-rolled FAT32 volume in memory for
// tests: one reserved sector (the boot sector), a single FAT, and a data
// region where each cluster is exactly one sector. It exists purely to
// exercise the fatfs package without a real card or a multi-megabyte image.
type imageBuilder struct {
	sectorsPerCluster uint8
	reservedSectors   uint16
	fatSectors        uint32
	totalSectors      uint32
	rootCluster       uint32

	raw []byte
}

func newImageBuilder(totalSectors uint32) *imageBuilder {
	b := &imageBuilder{
		sectorsPerCluster: 1,
		reservedSectors:   1,
		fatSectors:        1,
		totalSectors:      totalSectors,
		rootCluster:       2,
	}
	b.raw = make([]byte, int(totalSectors)*512)
	b.writeBootSector()
	return b
}

func (b *imageBuilder) writeBootSector() {
	sector := b.raw[0:512]
	sector[11] = 0x00
	sector[12] = 0x02 // bytes per sector = 512 (LE u16)
	sector[13] = b.sectorsPerCluster
	binary.LittleEndian.PutUint16(sector[14:16], b.reservedSectors)
	sector[16] = 1 // num FATs
	binary.LittleEndian.PutUint32(sector[36:40], b.fatSectors)
	binary.LittleEndian.PutUint32(sector[44:48], b.rootCluster)
	sector[510] = 0x55
	sector[511] = 0xAA
}

// dataFirstSector mirrors Geometry.DataRegionFirstSector for this layout.
func (b *imageBuilder) dataFirstSector() uint32 {
	return uint32(b.reservedSectors) + b.fatSectors
}

func (b *imageBuilder) clusterSector(cluster uint32) []byte {
	lba := b.dataFirstSector() + (cluster-2)*uint32(b.sectorsPerCluster)
	start := int(lba) * 512
	return b.raw[start : start+512]
}

// setFATEntry writes the FAT32 entry for cluster.
func (b *imageBuilder) setFATEntry(cluster, value uint32) {
	fatLBA := 0 + uint32(b.reservedSectors) // BootSectorLBA is 0 in these images
	start := int(fatLBA)*512 + int(cluster)*4
	binary.LittleEndian.PutUint32(b.raw[start:start+4], value)
}

func (b *imageBuilder) reader() fatfs.SectorReader {
	return sdsim.NewDirectSectorReader(b.raw)
}

func (b *imageBuilder) finder(lba uint32) fatfs.BootSectorFinder {
	return func() (uint32, bool) { return lba, true }
}

// writeShortEntry writes a short-name entry at byte offset off of a cluster
// sector. name and ext must already be space-padded to 8 and 3 bytes.
func writeShortEntry(sector []byte, off int, name, ext string, attr byte, cluster, size uint32) {
	copy(sector[off:off+8], name)
	copy(sector[off+8:off+11], ext)
	sector[off+11] = attr
	binary.LittleEndian.PutUint16(sector[off+20:off+22], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(sector[off+26:off+28], uint16(cluster))
	binary.LittleEndian.PutUint32(sector[off+28:off+32], size)
}

// writeLFNEntry writes one LFN sub-entry at offset off. chars holds up to 13
// 7-bit ASCII characters; remaining name-chunk slots are zero-terminated.
func writeLFNEntry(sector []byte, off int, ordinal int, last bool, chars string) {
	seq := byte(ordinal)
	if last {
		seq |= 0x40
	}
	sector[off] = seq
	sector[off+11] = 0x0F

	offsets := []int{1, 3, 5, 7, 9, 14, 16, 18, 20, 22, 24, 28, 30}
	for i, o := range offsets {
		if i < len(chars) {
			sector[off+o] = chars[i]
		} else if i == len(chars) {
			sector[off+o] = 0x00
		} else {
			sector[off+o] = 0xFF
		}
	}
}
