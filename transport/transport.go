// Package transport implements the SD-over-SPI block command/response state
// machine (spec §4.A): read/write/erase a single 512-byte block, and
// multi-block streaming with stop tokens and post-error block-count
// recovery. It consumes the byte-level SPI primitives and SD command
// primitives as external capabilities (spec §6) rather than owning a bus.
package transport

import (
	sdferrors "github.com/avrtools/sdfat32/errors"
	"github.com/avrtools/sdfat32/spi"
)

// BlockSink receives completed 512-byte blocks during a multi-block read,
// e.g. to stream them into a directory-entry or file reader without
// buffering the whole transfer.
type BlockSink interface {
	WriteBlock(index int, data *[BlockSize]byte) error
}

// BlockSource supplies 512-byte blocks during a multi-block write.
type BlockSource interface {
	ReadBlock(index int, data *[BlockSize]byte) error
}

// BlockTransport drives the command/response protocol described in spec
// §4.A over a caller-supplied Link and Commander. It keeps no hardware state
// of its own beyond those two; it drives chip select itself, lowering it
// around each command sequence and raising it afterwards.
type BlockTransport struct {
	link spi.Link
	cmd  spi.Commander
}

// New wires a BlockTransport to the given Link and Commander.
func New(link spi.Link, cmd spi.Commander) *BlockTransport {
	return &BlockTransport{link: link, cmd: cmd}
}

func (t *BlockTransport) sendAndCheckR1(command byte, arg uint32) (byte, bool) {
	t.cmd.SendCommand(command, arg)
	r1 := t.cmd.GetR1()
	return r1, sdferrors.IsOutOfIdleOK(r1)
}

func (t *BlockTransport) waitForToken(token byte, limit int) bool {
	for i := 0; i < limit; i++ {
		if t.link.RecvByte() == token {
			return true
		}
	}
	return false
}

func (t *BlockTransport) readDataPacket(out *[BlockSize]byte) {
	for i := range out {
		out[i] = t.link.RecvByte()
	}
	t.link.RecvByte() // CRC high byte, discarded
	t.link.RecvByte() // CRC low byte, discarded
}

// ReadBlock reads one 512-byte block at lba into out (spec §4.A "Read-single
// protocol").
func (t *BlockTransport) ReadBlock(lba uint32, out *[BlockSize]byte) sdferrors.StatusWord {
	t.link.CSLow()
	defer t.link.CSHigh()

	r1, ok := t.sendAndCheckR1(ReadSingleBlock, lba)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
	}

	if !t.waitForToken(StartBlockToken, TimeoutLimit) {
		return sdferrors.NewStatus(sdferrors.ClassStartTokenTimeout, r1)
	}

	t.readDataPacket(out)
	t.link.RecvByte() // trailer byte, discarded
	return sdferrors.NewStatus(sdferrors.ClassReadSuccess, r1)
}

func (t *BlockTransport) writeDataPacket(startToken byte, data *[BlockSize]byte) {
	t.link.SendByte(startToken)
	for _, b := range data {
		t.link.SendByte(b)
	}
	t.link.SendByte(0xFF) // CRC placeholder, high
	t.link.SendByte(0xFF) // CRC placeholder, low
}

// waitWhileBusy polls the data line until it reads non-zero (card released),
// bounded by limit polls.
func (t *BlockTransport) waitWhileBusy(limit int) bool {
	for i := 0; i < limit; i++ {
		if t.link.RecvByte() != 0x00 {
			return true
		}
	}
	return false
}

// WriteBlock writes one 512-byte block at lba (spec §4.A "Write-single
// protocol").
func (t *BlockTransport) WriteBlock(lba uint32, in *[BlockSize]byte) sdferrors.StatusWord {
	t.link.CSLow()
	defer t.link.CSHigh()

	r1, ok := t.sendAndCheckR1(WriteBlock, lba)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
	}

	t.writeDataPacket(StartBlockToken, in)

	accepted := false
	for i := 0; i < TimeoutLimit && !accepted; i++ {
		class, known := sdferrors.ClassifyDataResponseToken(t.link.RecvByte())
		if !known {
			continue
		}
		if class != sdferrors.ClassDataAcceptedToken {
			return sdferrors.NewStatus(class, r1)
		}
		accepted = true
	}
	if !accepted {
		return sdferrors.NewStatus(sdferrors.ClassDataResponseTimeout, r1)
	}

	if !t.waitWhileBusy(CardBusyTimeoutLimit) {
		return sdferrors.NewStatus(sdferrors.ClassCardBusyTimeout, r1)
	}

	return sdferrors.NewStatus(sdferrors.ClassDataAcceptedToken, r1)
}

// EraseBlocks erases the inclusive block range [startLBA, endLBA] (spec
// §4.A "Erase protocol"): three commands in sequence, each with its own
// CS framing except the final erase, which holds CS low across the busy
// wait.
func (t *BlockTransport) EraseBlocks(startLBA, endLBA uint32) sdferrors.StatusWord {
	t.link.CSLow()
	r1, ok := t.sendAndCheckR1(EraseWrBlkStartAddr, startLBA)
	t.link.CSHigh()
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassEraseStartAddrError, r1)
	}

	t.link.CSLow()
	r1, ok = t.sendAndCheckR1(EraseWrBlkEndAddr, endLBA)
	t.link.CSHigh()
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassEraseEndAddrError, r1)
	}

	t.link.CSLow()
	defer t.link.CSHigh()
	r1, ok = t.sendAndCheckR1(Erase, 0)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassEraseError, r1)
	}

	if !t.waitWhileBusy(EraseBusyTimeoutLimit) {
		return sdferrors.NewStatus(sdferrors.ClassEraseBusyTimeout, r1)
	}

	return sdferrors.NewStatus(sdferrors.ClassEraseSuccessful, r1)
}

// ReadMultiBlocks reads n consecutive blocks starting at startLBA, handing
// each completed block to sink as soon as it arrives (spec §4.A "Multi-block
// read").
func (t *BlockTransport) ReadMultiBlocks(startLBA uint32, n int, sink BlockSink) sdferrors.StatusWord {
	t.link.CSLow()
	defer t.link.CSHigh()

	r1, ok := t.sendAndCheckR1(ReadMultipleBlock, startLBA)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
	}

	var buf [BlockSize]byte
	for i := 0; i < n; i++ {
		if !t.waitForToken(StartBlockToken, MultiStartTimeoutLimit) {
			t.stopMultiRead()
			return sdferrors.NewStatus(sdferrors.ClassStartTokenTimeout, r1)
		}
		t.readDataPacket(&buf)
		if err := sink.WriteBlock(i, &buf); err != nil {
			t.stopMultiRead()
			return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
		}
	}

	t.stopMultiRead()
	return sdferrors.NewStatus(sdferrors.ClassReadSuccess, r1)
}

func (t *BlockTransport) stopMultiRead() {
	t.cmd.SendCommand(StopTransmission, 0)
	t.link.RecvByte() // R1b stop response, discarded
}

// WriteMultiBlocks writes n consecutive blocks starting at startLBA, pulling
// each block from src (spec §4.A "Multi-block write"). On a non-accepted
// data response it stops immediately; the caller can then query
// GetNumWellWrittenBlocks to learn how many blocks actually persisted.
func (t *BlockTransport) WriteMultiBlocks(startLBA uint32, n int, src BlockSource) sdferrors.StatusWord {
	t.link.CSLow()
	defer t.link.CSHigh()

	r1, ok := t.sendAndCheckR1(WriteMultipleBlock, startLBA)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
	}

	var buf [BlockSize]byte
	status := sdferrors.NewStatus(sdferrors.ClassDataAcceptedToken, r1)

	for i := 0; i < n; i++ {
		if err := src.ReadBlock(i, &buf); err != nil {
			status = sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
			break
		}
		t.writeDataPacket(StartMultiWriteToken, &buf)

		token := t.link.RecvByte()
		class, known := sdferrors.ClassifyDataResponseToken(token)
		if !known {
			status = sdferrors.NewStatus(sdferrors.ClassInvalidDataResponse, r1)
			break
		}
		if class != sdferrors.ClassDataAcceptedToken {
			status = sdferrors.NewStatus(class, r1)
			break
		}
		if !t.waitWhileBusy(CardBusyTimeoutLimit) {
			status = sdferrors.NewStatus(sdferrors.ClassCardBusyTimeout, r1)
			break
		}
	}

	t.link.SendByte(StopMultiWriteToken)
	t.waitWhileBusy(CardBusyTimeoutLimit)
	return status
}

// GetNumWellWrittenBlocks queries the card, via APP_CMD (CMD55) followed by
// SEND_NUM_WR_BLOCKS (ACMD22), for how many blocks of the most recent
// multi-block write actually persisted before an error broke the stream.
// The card replies with a single start-token-delimited 4-byte big-endian
// count, mirroring a single-block read framing.
func (t *BlockTransport) GetNumWellWrittenBlocks(out *uint32) sdferrors.StatusWord {
	t.link.CSLow()
	defer t.link.CSHigh()

	r1, ok := t.sendAndCheckR1(AppCmd, 0)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
	}

	r1, ok = t.sendAndCheckR1(SendNumWrBlocks, 0)
	if !ok {
		return sdferrors.NewStatus(sdferrors.ClassR1Error, r1)
	}

	if !t.waitForToken(StartBlockToken, TimeoutLimit) {
		return sdferrors.NewStatus(sdferrors.ClassStartTokenTimeout, r1)
	}

	var raw [4]byte
	for i := range raw {
		raw[i] = t.link.RecvByte()
	}
	t.link.RecvByte() // CRC high, discarded
	t.link.RecvByte() // CRC low, discarded

	*out = uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	return sdferrors.NewStatus(sdferrors.ClassReadSuccess, r1)
}
