package vocab

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// MergeTable answers "may these two adjacent symbols merge, and at what
// priority". It follows the tiktoken rank semantics: a pair is mergeable
// exactly when the concatenation of its byte sequences is itself an ordinary
// vocabulary entry, and that entry's symbol ID serves as both the merge rank
// (lower merges first) and the resulting symbol. This keeps the table
// implicit (no pair enumeration) and makes termination structural: every
// merge shortens the part sequence by one.
type MergeTable struct {
	vocab *Vocabulary
}

// NewMergeTable validates the vocabulary's merge structure and wraps it in a
// MergeTable. Validation failures are fatal and abort loading:
//
//   - the vocabulary must contain every single-byte sequence, otherwise some
//     input byte could never be covered;
//   - special tokens must not shadow ordinary byte sequences (checked at
//     build time by the Builder).
//
// Tokens that cannot be decomposed into two lower-ranked entries are
// unreachable by the encoder but still decodable; they are counted and
// logged, not rejected, since real artifacts ship a handful of them.
func NewMergeTable(v *Vocabulary) (*MergeTable, error) {
	var single [1]byte
	for b := 0; b < 256; b++ {
		single[0] = byte(b)
		if _, ok := v.rank(single[:]); !ok {
			return nil, errors.Wrapf(ErrInvalidMergeTable, "no token for byte 0x%02x; vocabulary is not byte-complete", b)
		}
	}

	if klog.V(2).Enabled() {
		unreachable := 0
		for token, id := range v.idByBytes {
			if len(token) < 2 {
				continue
			}
			if !decomposable(v, token, id) {
				unreachable++
			}
		}
		if unreachable > 0 {
			klog.V(2).Infof("merge table: %d of %d tokens are not reachable by any merge sequence", unreachable, v.Size())
		}
	}

	return &MergeTable{vocab: v}, nil
}

// decomposable reports whether token splits into two ordinary entries that
// both outrank (numerically undercut) id.
func decomposable(v *Vocabulary, token string, id int) bool {
	for i := 1; i < len(token); i++ {
		l, lok := v.rank([]byte(token[:i]))
		r, rok := v.rank([]byte(token[i:]))
		if lok && rok && l < id && r < id {
			return true
		}
	}
	return false
}

// RankOf returns the merge rank for the pair of symbols (left, right), or
// false when the pair has no rule. The returned rank is also the symbol ID
// produced by applying the merge.
func (m *MergeTable) RankOf(left, right int) (int, bool) {
	lb, err := m.vocab.LookupBytes(left)
	if err != nil {
		return 0, false
	}
	rb, err := m.vocab.LookupBytes(right)
	if err != nil {
		return 0, false
	}
	joined := make([]byte, 0, len(lb)+len(rb))
	joined = append(joined, lb...)
	joined = append(joined, rb...)
	return m.vocab.rank(joined)
}

// RankOfBytes returns the rank for a candidate merged byte sequence. The
// encoder tracks parts as sub-spans of the input, so the concatenation of an
// adjacent pair is already a contiguous slice and this lookup allocates
// nothing.
func (m *MergeTable) RankOfBytes(seq []byte) (int, bool) {
	return m.vocab.rank(seq)
}
