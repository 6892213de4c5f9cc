package fatfs

import (
	"golang.org/x/text/encoding/unicode"
)

// utf16leDecoder decodes the raw UTF-16LE code units packed into an LFN
// sub-entry's name-chunk slots. The fast path in lfn.go handles the 7-bit
// ASCII subset this core commits to (spec §1/§9 open question on Unicode);
// this decoder is the fallback for code units outside that subset, so a
// long name with non-ASCII characters is still reassembled correctly
// instead of being silently mangled.
var utf16leDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// decodeUTF16LEChunk decodes raw as a sequence of UTF-16LE code units,
// stopping at the first 0x0000 terminator (or 0xFFFF filler, which isn't
// part of the name). raw must have even length.
func decodeUTF16LEChunk(raw []byte) (string, bool, error) {
	n := len(raw) / 2
	trimmed := raw
	terminated := false
	for i := 0; i < n; i++ {
		unit := uint16(raw[2*i]) | uint16(raw[2*i+1])<<8
		if unit == 0x0000 {
			trimmed = raw[:2*i]
			terminated = true
			break
		}
		if unit == 0xFFFF {
			trimmed = raw[:2*i]
			break
		}
	}

	out, err := utf16leDecoder.Bytes(trimmed)
	if err != nil {
		return "", false, err
	}
	return string(out), terminated, nil
}
