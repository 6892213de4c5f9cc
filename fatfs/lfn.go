package fatfs

import sdferrors "github.com/avrtools/sdfat32/errors"

const lastLongEntryFlag = 0x40
const ordinalMask = 0x1F

// LongNameLenMax bounds the reassembled long name (spec §4.E).
const LongNameLenMax = 255

func (e rawEntry) ordinal() int       { return int(e[0] & ordinalMask) }
func (e rawEntry) isLastLongEntry() bool { return e[0]&lastLongEntryFlag != 0 }

// lfnNameChunkOffsets are the byte offsets of the 13 16-bit code units
// packed into one LFN sub-entry (spec §3): {1..10, 14..25, 28..31}.
var lfnNameChunkOffsets = []int{1, 3, 5, 7, 9, 14, 16, 18, 20, 22, 24, 28, 30}

// lfnNameChunk extracts the 13 UTF-16LE code units packed into an LFN
// sub-entry. The entry's low bytes are scanned first: if every code unit is
// in this core's restricted printable 7-bit-ASCII subset (spec §4.E), the
// cheap byte-copy path is used. Otherwise the chunk is decoded as proper
// UTF-16LE (spec §1/§9 open question on Unicode beyond 7-bit ASCII),
// so accented or non-Latin long names still reassemble correctly instead
// of being silently mangled.
func (e rawEntry) lfnNameChunk() (string, bool) {
	raw := make([]byte, 0, 2*len(lfnNameChunkOffsets))
	asciiOnly := true
	for _, off := range lfnNameChunkOffsets {
		low, high := e[off], e[off+1]
		if high != 0x00 || (low != 0x00 && (low < 1 || low > 126)) {
			asciiOnly = false
		}
		raw = append(raw, low, high)
	}

	if asciiOnly {
		out := make([]byte, 0, len(lfnNameChunkOffsets))
		for i := 0; i < len(raw); i += 2 {
			if raw[i] == 0x00 {
				return string(out), true
			}
			if raw[i] >= 1 && raw[i] <= 126 {
				out = append(out, raw[i])
			}
		}
		return string(out), false
	}

	decoded, terminated, err := decodeUTF16LEChunk(raw)
	if err != nil {
		return "", false
	}
	return decoded, terminated
}

// reassembleLongName walks an LFN chain in ordinal order 1..N (spec §4.E,
// §9 "LFN reassembly direction"), which both matches on-disk semantics and
// avoids negative-index arithmetic on sector offsets. entries must be given
// in the order they're encountered on disk: highest ordinal first, the
// ordinal-1 entry last, immediately followed on disk by the short-name
// entry.
func reassembleLongName(entriesHighToLow []rawEntry) (string, error) {
	n := len(entriesHighToLow)
	if n == 0 {
		return "", sdferrors.ErrCorruptFATEntry
	}

	if !entriesHighToLow[0].isLastLongEntry() {
		return "", sdferrors.ErrCorruptFATEntry
	}
	if entriesHighToLow[n-1].ordinal() != 1 {
		return "", sdferrors.ErrCorruptFATEntry
	}

	var name string
	for i := n - 1; i >= 0; i-- {
		chunk, terminated := entriesHighToLow[i].lfnNameChunk()
		name += chunk
		if terminated {
			break
		}
	}

	if len(name) > LongNameLenMax {
		name = name[:LongNameLenMax]
	}
	return name, nil
}
