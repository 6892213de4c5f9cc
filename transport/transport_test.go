package transport_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avrtools/sdfat32/sdsim"
	"github.com/avrtools/sdfat32/transport"
)

func newCard(t *testing.T, blocks uint32) *sdsim.Card {
	t.Helper()
	raw := make([]byte, int(blocks)*transport.BlockSize)
	return sdsim.NewCard(raw, blocks)
}

// S5 — SD single-block round-trip.
func TestReadWriteBlockRoundTrip(t *testing.T) {
	card := newCard(t, 2000)
	tr := transport.New(card, card)

	var payload [transport.BlockSize]byte
	for i := range payload {
		payload[i] = 0xAA
	}

	writeStatus := tr.WriteBlock(1000, &payload)
	assert.True(t, writeStatus.Ok(), "write status: %s", writeStatus.Error())

	var out [transport.BlockSize]byte
	readStatus := tr.ReadBlock(1000, &out)
	require.True(t, readStatus.Ok(), "read status: %s", readStatus.Error())
	assert.Equal(t, payload, out)
}

type collectingSink struct {
	blocks [][transport.BlockSize]byte
}

func (s *collectingSink) WriteBlock(index int, data *[transport.BlockSize]byte) error {
	s.blocks = append(s.blocks, *data)
	return nil
}

func TestReadMultiBlocks(t *testing.T) {
	card := newCard(t, 10)
	tr := transport.New(card, card)

	for i := uint32(0); i < 3; i++ {
		var block [transport.BlockSize]byte
		block[0] = byte(i) + 1
		require.True(t, tr.WriteBlock(i, &block).Ok())
	}

	sink := &collectingSink{}
	status := tr.ReadMultiBlocks(0, 3, sink)
	require.True(t, status.Ok())
	require.Len(t, sink.blocks, 3)
	for i, block := range sink.blocks {
		assert.Equal(t, byte(i)+1, block[0])
	}
}

type sliceSource struct {
	blocks [][transport.BlockSize]byte
}

func (s *sliceSource) ReadBlock(index int, data *[transport.BlockSize]byte) error {
	*data = s.blocks[index]
	return nil
}

func TestWriteMultiBlocksAndWellWrittenCount(t *testing.T) {
	card := newCard(t, 10)
	tr := transport.New(card, card)

	src := &sliceSource{blocks: make([][transport.BlockSize]byte, 4)}
	for i := range src.blocks {
		src.blocks[i][0] = byte(i)
	}

	status := tr.WriteMultiBlocks(0, len(src.blocks), src)
	require.True(t, status.Ok())

	var count uint32
	countStatus := tr.GetNumWellWrittenBlocks(&count)
	require.True(t, countStatus.Ok())
	assert.Equal(t, uint32(4), count)

	for i := range src.blocks {
		var out [transport.BlockSize]byte
		require.True(t, tr.ReadBlock(uint32(i), &out).Ok())
		assert.Equal(t, byte(i), out[0])
	}
}

// S7-style: erase leaves the range self-consistent (equal to itself on
// re-read), per spec §8 invariant 7 — do not assume a specific erase pattern.
func TestEraseBlocksIsIdempotentPattern(t *testing.T) {
	card := newCard(t, 20)
	tr := transport.New(card, card)

	status := tr.EraseBlocks(5, 8)
	require.True(t, status.Ok(), status.Error())

	var first [transport.BlockSize]byte
	require.True(t, tr.ReadBlock(5, &first).Ok())

	for lba := uint32(5); lba <= 8; lba++ {
		var out [transport.BlockSize]byte
		require.True(t, tr.ReadBlock(lba, &out).Ok())
		assert.Equal(t, first, out)
	}
}
