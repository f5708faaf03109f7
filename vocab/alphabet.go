package vocab

import "github.com/pkg/errors"

// ByteAlphabet is the fixed, reversible mapping between raw bytes and the
// atomic symbol IDs that seed every encode. It is total over all 256 byte
// values, so a plain byte span can never be left without a covering symbol.
type ByteAlphabet struct {
	toSymbol   [256]int
	fromSymbol map[int]byte
}

// NewByteAlphabet derives the alphabet from a vocabulary by resolving each
// single-byte sequence to its symbol ID. Every loaded vocabulary must be
// byte-complete; a missing byte entry means the artifact is corrupt.
func NewByteAlphabet(v *Vocabulary) (*ByteAlphabet, error) {
	a := &ByteAlphabet{fromSymbol: make(map[int]byte, 256)}
	var single [1]byte
	for b := 0; b < 256; b++ {
		single[0] = byte(b)
		id, err := v.LookupID(single[:])
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMergeTable, "vocabulary has no token for byte 0x%02x", b)
		}
		a.toSymbol[b] = id
		a.fromSymbol[id] = byte(b)
	}
	return a, nil
}

// Symbol returns the atomic symbol ID for a raw byte. Total, never fails.
func (a *ByteAlphabet) Symbol(b byte) int {
	return a.toSymbol[b]
}

// Byte returns the raw byte for an atomic symbol ID, or false if the ID is
// not in the alphabet range.
func (a *ByteAlphabet) Byte(id int) (byte, bool) {
	b, ok := a.fromSymbol[id]
	return b, ok
}

// byteLevelRunes builds the GPT-2 byte-to-printable-rune substitution used by
// vocab.json artifacts: printable ASCII and most of latin-1 map to
// themselves, the rest get stand-ins starting at U+0100 so every token string
// survives JSON round-trips. Returns the table and its inverse.
func byteLevelRunes() (byteToRune [256]rune, runeToByte map[rune]byte) {
	runeToByte = make(map[rune]byte, 256)
	next := rune(256)
	for b := 0; b < 256; b++ {
		r := rune(b)
		printable := (b >= '!' && b <= '~') || (b >= 0xa1 && b <= 0xac) || (b >= 0xae && b <= 0xff)
		if !printable {
			r = next
			next++
		}
		byteToRune[b] = r
		runeToByte[r] = byte(b)
	}
	return
}
