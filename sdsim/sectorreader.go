package sdsim

import (
	"io"

	"github.com/xaionaro-go/bytesextra"
)

// DirectSectorReader satisfies fatfs.SectorReader directly over an in-memory
// disk image, bypassing the SPI command/response protocol. It's the fast
// path used by fatfs tests, where the point under test is
// the FAT layer rather than the transport state machine; transport itself
// is exercised separately against Card.
type DirectSectorReader struct {
	disk io.ReadSeeker
}

// NewDirectSectorReader wraps raw as a sector-addressable disk image.
func NewDirectSectorReader(raw []byte) *DirectSectorReader {
	return &DirectSectorReader{disk: bytesextra.NewReadWriteSeeker(raw)}
}

// ReadSector implements fatfs.SectorReader.
func (d *DirectSectorReader) ReadSector(lba uint32, out *[512]byte) error {
	if _, err := d.disk.Seek(int64(lba)*512, io.SeekStart); err != nil {
		return err
	}
	_, err := io.ReadFull(d.disk, out[:])
	return err
}
