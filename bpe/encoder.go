package bpe

import (
	"container/heap"

	"github.com/bpekit/bpekit/vocab"
)

// encodePiece runs the greedy merge over one pre-tokenized piece and appends
// the resulting symbol IDs to dst.
//
// Parts are tracked as contiguous sub-spans of piece on a doubly-linked list
// of slots, so the byte sequence of any adjacent pair is just a wider slice
// and rank lookups allocate nothing. Candidates live in a min-heap keyed by
// (rank, position); per-slot version counters lazily invalidate entries made
// stale by earlier merges. Equal-rank candidates merge leftmost-first.
//
// Encoding is total: parts start as single bytes, which a validated
// vocabulary always covers, and every merge was itself a successful rank
// lookup, so the final walk can never hit an unknown part.
func encodePiece(piece []byte, alphabet *vocab.ByteAlphabet, merges *vocab.MergeTable, dst []int) []int {
	n := len(piece)
	switch n {
	case 0:
		return dst
	case 1:
		return append(dst, alphabet.Symbol(piece[0]))
	}

	// Whole-piece hit is the common case for cached words and short pieces.
	if id, ok := merges.RankOfBytes(piece); ok {
		return append(dst, id)
	}

	// Slot i initially holds the single byte piece[i:i+1].
	start := make([]int, n)
	end := make([]int, n)
	prev := make([]int, n)
	next := make([]int, n)
	version := make([]int, n)
	for i := 0; i < n; i++ {
		start[i] = i
		end[i] = i + 1
		prev[i] = i - 1
		next[i] = i + 1
	}
	next[n-1] = -1

	h := make(mergeHeap, 0, n)

	pushIfMergeable := func(i int) {
		if i == -1 {
			return
		}
		j := next[i]
		if j == -1 {
			return
		}
		if rank, ok := merges.RankOfBytes(piece[start[i]:end[j]]); ok {
			heap.Push(&h, mergeCand{rank: rank, pos: i, verL: version[i], verR: version[j]})
		}
	}

	for i := 0; i < n-1; i++ {
		pushIfMergeable(i)
	}

	for h.Len() > 0 {
		c := heap.Pop(&h).(mergeCand)
		i := c.pos
		j := next[i]
		if j == -1 {
			continue
		}
		// Version mismatch means either slot changed since the push; the
		// spans it described no longer exist.
		if version[i] != c.verL || version[j] != c.verR {
			continue
		}

		// Collapse j into i.
		end[i] = end[j]
		next[i] = next[j]
		if next[j] != -1 {
			prev[next[j]] = i
		}
		prev[j], next[j] = -1, -1
		version[i]++
		version[j]++

		pushIfMergeable(prev[i])
		pushIfMergeable(i)
	}

	for i := 0; i != -1; i = next[i] {
		span := piece[start[i]:end[i]]
		if len(span) == 1 {
			dst = append(dst, alphabet.Symbol(span[0]))
			continue
		}
		id, _ := merges.RankOfBytes(span)
		dst = append(dst, id)
	}
	return dst
}
