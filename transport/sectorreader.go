package transport

import (
	"fmt"
)

// SectorReader adapts a BlockTransport to the fatfs.SectorReader contract
// (spec §6 "sector_read"), converting the packed StatusWord into a plain
// error at this layer boundary.
type SectorReader struct {
	Transport *BlockTransport
}

// ReadSector implements fatfs.SectorReader.
func (s SectorReader) ReadSector(lba uint32, out *[512]byte) error {
	status := s.Transport.ReadBlock(lba, out)
	if !status.Ok() {
		return fmt.Errorf("sector %d: %s (r1=0x%02x)", lba, status.Error(), status.R1())
	}
	return nil
}
