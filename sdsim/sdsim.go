// Package sdsim simulates an SD card over SPI for tests, backed by an in-memory byte slice — the same trick the teacher repo's
// testing/images.go uses bytesextra for, presenting a byte slice as a disk
// image. Card implements spi.Link and spi.Commander well enough to drive the
// transport state machine (spec §4.A) for CMD17/18/24/25/12/32/33/38/55/
// ACMD22, and DirectSectorReader implements fatfs.SectorReader directly over
// the same backing image for FAT-layer tests that don't need to exercise the
// SPI protocol itself.
package sdsim

import (
	"io"

	"github.com/xaionaro-go/bytesextra"

	"github.com/avrtools/sdfat32/transport"
)

// Card is an in-memory stand-in for an SD card reachable over SPI.
type Card struct {
	disk       io.ReadWriteSeeker
	blockCount uint32

	cmd      byte
	arg      uint32
	recvBuf  []byte // bytes queued up for the next RecvByte calls
	writeAcc []byte // bytes accumulated from SendByte while writing a block

	eraseStart     uint32
	eraseEnd       uint32
	haveEraseStart bool

	numWellWritten uint32
}

// NewCard wraps raw ([]byte of length blockCount*512) as a simulated card.
func NewCard(raw []byte, blockCount uint32) *Card {
	return &Card{disk: bytesextra.NewReadWriteSeeker(raw), blockCount: blockCount}
}

func (c *Card) CSLow()  {}
func (c *Card) CSHigh() {}

// SendCommand implements spi.Commander. It stages the command and, for
// commands with an immediate reply (STOP_TRANSMISSION, ACMD22), fills
// recvBuf with everything RecvByte will need to hand back. Read data is
// queued later by nextReadByte; the erase commands record or apply their
// block addresses and queue nothing.
func (c *Card) SendCommand(cmd byte, arg uint32) {
	c.cmd = cmd
	c.arg = arg
	c.recvBuf = nil

	switch cmd {
	case transport.ReadSingleBlock, transport.ReadMultipleBlock:
		// R1 is consumed via GetR1; the start token + payload are queued
		// lazily per block by nextReadByte, invoked from RecvByte.
	case transport.WriteBlock, transport.WriteMultipleBlock:
		c.writeAcc = c.writeAcc[:0]
	case transport.StopTransmission:
		c.recvBuf = []byte{0x00} // R1b stub
	case transport.EraseWrBlkStartAddr:
		c.eraseStart = arg
		c.haveEraseStart = true
	case transport.EraseWrBlkEndAddr:
		// record the end address; erase happens on the ERASE command
		c.eraseEnd = arg
	case transport.Erase:
		c.doErase(c.eraseStart, c.eraseEnd)
	case transport.SendNumWrBlocks:
		c.recvBuf = append([]byte{transport.StartBlockToken}, be32(c.numWellWritten)...)
		c.recvBuf = append(c.recvBuf, 0, 0) // CRC placeholder
	}
}

func be32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

// GetR1 implements spi.Commander: this simulator never fails a command.
func (c *Card) GetR1() byte { return 0x00 }

// RecvByte implements spi.Link.
func (c *Card) RecvByte() byte {
	switch c.cmd {
	case transport.ReadSingleBlock, transport.ReadMultipleBlock:
		return c.nextReadByte()
	default:
		if len(c.recvBuf) > 0 {
			b := c.recvBuf[0]
			c.recvBuf = c.recvBuf[1:]
			return b
		}
		return 0xFF // busy/no-data default
	}
}

// nextReadByte serves read data. Whenever the queue runs dry it queues the
// block at c.arg (start token, payload, CRC) and advances c.arg, so the
// blocks of a multi-block read follow one another.
func (c *Card) nextReadByte() byte {
	if len(c.recvBuf) == 0 {
		block := make([]byte, transport.BlockSize)
		_, _ = c.disk.Seek(int64(c.arg)*transport.BlockSize, io.SeekStart)
		_, _ = c.disk.Read(block)
		c.arg++ // advance to the next block for the next start-token request
		c.recvBuf = append([]byte{transport.StartBlockToken}, block...)
		c.recvBuf = append(c.recvBuf, 0, 0) // CRC placeholder, trailer handled by caller
	}
	b := c.recvBuf[0]
	c.recvBuf = c.recvBuf[1:]
	return b
}

// SendByte implements spi.Link; used for write payloads and the
// stop-multi-write token.
func (c *Card) SendByte(b byte) {
	switch c.cmd {
	case transport.WriteBlock, transport.WriteMultipleBlock:
		if b == transport.StartBlockToken || b == transport.StartMultiWriteToken {
			c.writeAcc = c.writeAcc[:0]
			return
		}
		if len(c.writeAcc) < transport.BlockSize {
			c.writeAcc = append(c.writeAcc, b)
			if len(c.writeAcc) == transport.BlockSize {
				c.flushWriteBlock()
			}
			return
		}
		// CRC placeholder bytes: ignored, and queue the accepted response.
		c.recvBuf = append(c.recvBuf, 0x05)
	}
}

func (c *Card) flushWriteBlock() {
	_, _ = c.disk.Seek(int64(c.arg)*transport.BlockSize, io.SeekStart)
	_, _ = c.disk.Write(c.writeAcc)
	c.arg++
	c.numWellWritten++
}

func (c *Card) doErase(start, end uint32) {
	pattern := make([]byte, transport.BlockSize)
	for i := range pattern {
		pattern[i] = 0xFF
	}
	for lba := start; lba <= end; lba++ {
		_, _ = c.disk.Seek(int64(lba)*transport.BlockSize, io.SeekStart)
		_, _ = c.disk.Write(pattern)
	}
}
