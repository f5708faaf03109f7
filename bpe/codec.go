// Package bpe implements a byte-pair-encoding tokenizer: a fixed vocabulary
// and merge-rank table turn text into symbol IDs and back, with special
// tokens bypassing ordinary merging behind an explicit allow-list.
package bpe

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/bpekit/bpekit/vocab"
)

const (
	// defaultCacheSize bounds the per-piece encode cache.
	defaultCacheSize = 8192

	// maxCachedPieceLen keeps pathological pieces (e.g. megabyte runs of
	// one character) from monopolizing cache memory.
	maxCachedPieceLen = 128
)

// Config parameterizes a Codec beyond its vocabulary.
type Config struct {
	// Name identifies the encoding, e.g. "cl100k_base".
	Name string

	// Pattern is the encoding's pre-tokenization split regex. Empty
	// disables pre-tokenization and merges across the whole span.
	Pattern string

	// CacheSize bounds the piece-encode LRU cache. Zero selects the
	// default; negative disables caching.
	CacheSize int
}

// Codec is an immutable tokenizer handle. All tables are frozen at
// construction, so one Codec may serve any number of concurrent Encode and
// Decode calls; the only mutable state is the internally synchronized piece
// cache, which never affects results. Multiple Codecs over different
// vocabularies coexist freely; there is no process-wide registry.
type Codec struct {
	name     string
	vocab    *vocab.Vocabulary
	merges   *vocab.MergeTable
	alphabet *vocab.ByteAlphabet
	pre      *preTokenizer
	specials *specialMatcher
	cache    *lru.Cache[string, []int]
}

// NewCodec builds a Codec over a loaded vocabulary. Fails when the
// vocabulary does not validate as a merge table (not byte-complete) or the
// split pattern does not compile.
func NewCodec(v *vocab.Vocabulary, cfg Config) (*Codec, error) {
	merges, err := vocab.NewMergeTable(v)
	if err != nil {
		return nil, errors.WithMessagef(err, "encoding %q", cfg.Name)
	}
	alphabet, err := vocab.NewByteAlphabet(v)
	if err != nil {
		return nil, errors.WithMessagef(err, "encoding %q", cfg.Name)
	}

	c := &Codec{
		name:     cfg.Name,
		vocab:    v,
		merges:   merges,
		alphabet: alphabet,
		specials: newSpecialMatcher(v),
	}
	if cfg.Pattern != "" {
		if c.pre, err = newPreTokenizer(cfg.Pattern); err != nil {
			return nil, errors.WithMessagef(err, "encoding %q", cfg.Name)
		}
	}
	size := cfg.CacheSize
	if size == 0 {
		size = defaultCacheSize
	}
	if size > 0 {
		// lru.New only fails on non-positive size.
		c.cache, _ = lru.New[string, []int](size)
	}
	return c, nil
}

// Name returns the encoding name this Codec was built for.
func (c *Codec) Name() string { return c.name }

// Encode converts text into its token ID sequence. Registered special
// literals in the text must appear in allowed or the call fails with
// ErrDisallowedSpecial; allowed entries naming unregistered specials fail
// the same way. Encoding is deterministic and total once the allow-list
// check passes.
func (c *Codec) Encode(text string, allowed AllowSet) ([]int, error) {
	if err := c.specials.validateAllowed(allowed); err != nil {
		return nil, err
	}
	segments, err := c.specials.split(text, allowed)
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, seg := range segments {
		if seg.special {
			ids = append(ids, seg.id)
			continue
		}
		if ids, err = c.encodeSpan(seg.text, ids); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// EncodeOrdinary converts text into token IDs with no special-token
// recognition at all: special literals are merged like any other text.
func (c *Codec) EncodeOrdinary(text string) []int {
	// encodeSpan only fails on pattern-scan errors, which a compiled
	// reference pattern does not produce; fall back to unsplit merging if
	// it ever does.
	ids, err := c.encodeSpan(text, nil)
	if err != nil {
		return encodePiece([]byte(text), c.alphabet, c.merges, nil)
	}
	return ids
}

// encodeSpan merges one plain span, piece by piece.
func (c *Codec) encodeSpan(span string, dst []int) ([]int, error) {
	if span == "" {
		return dst, nil
	}
	if c.pre == nil {
		return encodePiece([]byte(span), c.alphabet, c.merges, dst), nil
	}
	err := c.pre.pieces(span, func(piece string) {
		dst = c.encodeCached(piece, dst)
	})
	if err != nil {
		return nil, err
	}
	return dst, nil
}

// encodeCached encodes a single piece through the LRU cache. Cached slices
// are never handed out directly; they are only appended from.
func (c *Codec) encodeCached(piece string, dst []int) []int {
	cacheable := c.cache != nil && len(piece) <= maxCachedPieceLen
	if cacheable {
		if ids, ok := c.cache.Get(piece); ok {
			return append(dst, ids...)
		}
	}
	mark := len(dst)
	dst = encodePiece([]byte(piece), c.alphabet, c.merges, dst)
	if cacheable {
		ids := make([]int, len(dst)-mark)
		copy(ids, dst[mark:])
		c.cache.Add(piece, ids)
	}
	return dst
}

// DecodeBytes reconstructs the byte stream for a token ID sequence. Fails
// with vocab.ErrUnknownSymbol if any ID is outside all known ranges.
func (c *Codec) DecodeBytes(ids []int) ([]byte, error) {
	var out []byte
	for _, id := range ids {
		b, err := c.vocab.LookupBytes(id)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// Decode reconstructs text from a token ID sequence. For IDs produced by
// Encode on valid UTF-8 input, Decode(Encode(text)) == text.
func (c *Codec) Decode(ids []int) (string, error) {
	b, err := c.DecodeBytes(ids)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CountTokens returns the number of tokens Encode would produce with an
// empty allow-list.
func (c *Codec) CountTokens(text string) (int, error) {
	ids, err := c.Encode(text, AllowSet{})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// SpecialTokenID resolves a registered special literal to its reserved ID.
func (c *Codec) SpecialTokenID(name string) (int, error) {
	return c.vocab.SpecialID(name)
}

// Vocabulary exposes the underlying read-only vocabulary.
func (c *Codec) Vocabulary() *vocab.Vocabulary { return c.vocab }
