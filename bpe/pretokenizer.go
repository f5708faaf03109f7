package bpe

import (
	"github.com/dlclark/regexp2"
	"github.com/pkg/errors"
)

// preTokenizer splits a plain span into pieces before merging, using the
// encoding's reference regex. Merges never cross piece boundaries, which is
// what keeps byte-level BPE from gluing words across whitespace and is
// required to reproduce the reference token sequences.
//
// The reference patterns use negative lookahead (e.g. `\s+(?!\S)` to split
// trailing whitespace off the final word), which the standard library regexp
// cannot express, hence regexp2.
type preTokenizer struct {
	re *regexp2.Regexp
}

func newPreTokenizer(pattern string) (*preTokenizer, error) {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return nil, errors.Wrapf(err, "compiling split pattern %q", pattern)
	}
	return &preTokenizer{re: re}, nil
}

// pieces invokes fn for each piece of text in order. Match indices from
// regexp2 are rune-based, so the scan works over a rune slice; any gap the
// pattern leaves uncovered is passed through as its own piece rather than
// silently dropped, keeping encoding total over arbitrary input.
func (p *preTokenizer) pieces(text string, fn func(piece string)) error {
	runes := []rune(text)
	pos := 0
	m, err := p.re.FindRunesMatch(runes)
	for m != nil && err == nil {
		// Zero-width matches carry no text; their position is swept up by
		// the gap handling of the next real match or the tail.
		if m.Length > 0 {
			if m.Index > pos {
				fn(string(runes[pos:m.Index]))
			}
			fn(string(runes[m.Index : m.Index+m.Length]))
			pos = m.Index + m.Length
		}
		m, err = p.re.FindNextMatch(m)
	}
	if err != nil {
		return errors.Wrap(err, "scanning for pieces")
	}
	if pos < len(runes) {
		fn(string(runes[pos:]))
	}
	return nil
}
