package fatfs

import (
	"github.com/noxer/bytewriter"

	sdferrors "github.com/avrtools/sdfat32/errors"
	"github.com/avrtools/sdfat32/spi"
)

// ReadFile resolves name in the current directory and streams its contents
// to sink (spec §4.G). Unlike the original firmware (spec §9 item 4, which
// neither truncates at file_size nor bounds the cluster walk), this core
// truncates output at the entry's recorded file size and does not bound the
// number of clusters walked.
//
// Output is byte-transparent except that LF is expanded to CRLF and NUL
// bytes are dropped (spec §6).
func (n *Navigator) ReadFile(name string, sink spi.Sink) error {
	entry, err := n.Stat(name)
	if err != nil {
		return err
	}
	if entry.Short.IsDirectory() {
		return sdferrors.ErrFileNotFound
	}

	remaining := int64(entry.Short.FileSize)
	cluster := entry.Short.Cluster

	for remaining > 0 {
		lba := n.geom.FirstSectorOfCluster(cluster)
		for s := uint8(0); s < n.geom.SectorsPerCluster && remaining > 0; s++ {
			var sector [sectorSize]byte
			if err := n.sectors.ReadSector(lba+uint32(s), &sector); err != nil {
				return err
			}
			writeLen := int64(sectorSize)
			if remaining < writeLen {
				writeLen = remaining
			}
			emitSector(sector[:writeLen], sink)
			remaining -= writeLen
		}

		if remaining == 0 {
			break
		}

		next, err := n.geom.NextCluster(n.sectors, cluster)
		if err != nil {
			return err
		}
		if IsEndOfChain(next) {
			return sdferrors.ErrEndOfFile
		}
		cluster = next
	}

	return nil
}

// emitSector writes data to sink byte-transparently except that LF (0x0A)
// is expanded to CRLF and NUL (0x00) bytes are dropped (spec §6).
func emitSector(data []byte, sink spi.Sink) {
	for _, b := range data {
		switch b {
		case 0x00:
			continue
		case 0x0A:
			sink.PutByte(0x0D)
			sink.PutByte(0x0A)
		default:
			sink.PutByte(b)
		}
	}
}

// FixedBufferSink is a spi.Sink backed by a caller-owned, fixed-capacity
// buffer rather than the heap (spec §9 "Buffer ownership"), built on
// bytewriter.Writer the way the teacher repo's unixv1 formatter uses it to
// cap output into a provided byte slice. Writes past the buffer's capacity
// are silently dropped, matching a microcontroller console ring buffer
// rather than returning an error mid-stream.
type FixedBufferSink struct {
	w      *bytewriter.Writer
	buf    []byte
	cursor int
}

// NewFixedBufferSink wraps buf (caller-owned, not grown) as a Sink.
func NewFixedBufferSink(buf []byte) *FixedBufferSink {
	return &FixedBufferSink{w: bytewriter.New(buf), buf: buf}
}

// PutByte implements spi.Sink.
func (f *FixedBufferSink) PutByte(b byte) {
	if f.cursor >= len(f.buf) {
		return
	}
	n, _ := f.w.Write([]byte{b})
	f.cursor += n
}

// PutText implements spi.Sink.
func (f *FixedBufferSink) PutText(s string) {
	for i := 0; i < len(s); i++ {
		f.PutByte(s[i])
	}
}

// Written returns the portion of the buffer that has been filled so far.
func (f *FixedBufferSink) Written() []byte {
	return f.buf[:f.cursor]
}
