// Package spi declares the external capabilities the transport and FAT
// layers consume but never implement themselves (spec §6): the byte-level
// serial primitive, chip-select control, the SD command/response primitive,
// boot-sector discovery, and the console sink used by the file reader.
//
// Concrete implementations (bit-banged SPI, a hardware SPI peripheral, an
// in-memory simulator for tests) live outside this package; everything here
// is an interface so the core stays hardware-agnostic and testable.
package spi

// Link is the byte-level serial transfer primitive used by the block
// transport. Implementations are synchronous: SendByte/RecvByte block until
// the transfer completes.
type Link interface {
	SendByte(b byte)
	RecvByte() byte
	CSLow()
	CSHigh()
}

// Commander issues SD physical-layer commands and reads the R1 response.
// Both operations are expected to ride over a Link but are kept separate
// because the command framing (CRC, start bit, argument byte order) is a
// card-protocol concern, not a raw-byte concern.
type Commander interface {
	SendCommand(cmd byte, arg uint32)
	GetR1() byte
}

// BootSectorFinder locates the LBA of the volume's boot sector, e.g. by
// scanning an MBR partition table. It returns 0xFFFFFFFF if none is found.
type BootSectorFinder func() uint32

const NoBootSectorFound uint32 = 0xFFFFFFFF

// Sink is the console output capability used by the file reader (spec §6).
// The file reader itself expands LF to CRLF and drops NUL bytes before
// calling the sink, so a Sink writes the bytes it is given as they are.
// Implementations are expected to be cheap/unbuffered, matching the
// "byte_put/text_put" primitives of the source microcontroller firmware.
type Sink interface {
	PutByte(b byte)
	PutText(s string)
}
