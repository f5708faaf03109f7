package vocab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildByteComplete returns a vocabulary with every single byte at its own
// ID (0..255) plus the given extra tokens and specials.
func buildByteComplete(t *testing.T, extra map[string]int, specials map[string]int) *Vocabulary {
	t.Helper()
	b := NewBuilder(256 + len(extra))
	for i := 0; i < 256; i++ {
		require.NoError(t, b.Put([]byte{byte(i)}, i))
	}
	for token, id := range extra {
		require.NoError(t, b.Put([]byte(token), id))
	}
	for name, id := range specials {
		require.NoError(t, b.ReserveSpecial(name, id))
	}
	v, err := b.Build()
	require.NoError(t, err)
	return v
}

func TestBuilderRejectsDuplicateID(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.Put([]byte("a"), 0))
	err := b.Put([]byte("b"), 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMergeTable)
}

func TestBuilderRejectsDuplicateBytes(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.Put([]byte("a"), 0))
	err := b.Put([]byte("a"), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMergeTable)
}

func TestBuilderRejectsEmptyAndNegative(t *testing.T) {
	b := NewBuilder(1)
	assert.ErrorIs(t, b.Put(nil, 0), ErrInvalidMergeTable)
	assert.ErrorIs(t, b.Put([]byte("x"), -1), ErrInvalidMergeTable)
}

func TestReserveSpecial(t *testing.T) {
	b := NewBuilder(1)
	require.NoError(t, b.Put([]byte("a"), 0))
	require.NoError(t, b.ReserveSpecial("<|endoftext|>", 100))

	// Same name again.
	assert.ErrorIs(t, b.ReserveSpecial("<|endoftext|>", 101), ErrDuplicateSpecial)
	// Different name, same ID.
	assert.ErrorIs(t, b.ReserveSpecial("<|pad|>", 100), ErrDuplicateSpecial)
	// Colliding with an ordinary ID.
	assert.ErrorIs(t, b.ReserveSpecial("<|other|>", 0), ErrDuplicateSpecial)
}

func TestPutRejectsReservedSpecialID(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.ReserveSpecial("<|endoftext|>", 4))

	// The same ID arriving later as an ordinary token must fail instead of
	// shadowing the special literal at Build time.
	err := b.Put([]byte("a"), 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateSpecial)
}

func TestLookups(t *testing.T) {
	v := buildByteComplete(t, map[string]int{"ab": 256}, map[string]int{"<|eot|>": 300})

	got, err := v.LookupBytes(256)
	require.NoError(t, err)
	assert.Equal(t, []byte("ab"), got)

	// Specials decode through LookupBytes too.
	got, err = v.LookupBytes(300)
	require.NoError(t, err)
	assert.Equal(t, []byte("<|eot|>"), got)

	_, err = v.LookupBytes(999)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = v.LookupBytes(-1)
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	// 257..299 are holes inside the allocated range.
	_, err = v.LookupBytes(258)
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	id, err := v.LookupID([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 256, id)

	_, err = v.LookupID([]byte("zz"))
	assert.ErrorIs(t, err, ErrNotInVocabulary)

	// Special literals are not ordinary tokens.
	_, err = v.LookupID([]byte("<|eot|>"))
	assert.ErrorIs(t, err, ErrNotInVocabulary)

	id, err = v.SpecialID("<|eot|>")
	require.NoError(t, err)
	assert.Equal(t, 300, id)
	assert.True(t, v.IsSpecial(300))
	assert.False(t, v.IsSpecial(256))

	_, err = v.SpecialID("<|missing|>")
	assert.ErrorIs(t, err, ErrUnknownSymbol)

	assert.Equal(t, 257, v.Size())
	assert.Equal(t, []string{"<|eot|>"}, v.SpecialTokens())
}

func TestByteAlphabetRoundTrip(t *testing.T) {
	v := buildByteComplete(t, nil, nil)
	a, err := NewByteAlphabet(v)
	require.NoError(t, err)

	for b := 0; b < 256; b++ {
		id := a.Symbol(byte(b))
		back, ok := a.Byte(id)
		require.True(t, ok, "byte 0x%02x", b)
		assert.Equal(t, byte(b), back)
	}

	_, ok := a.Byte(1 << 20)
	assert.False(t, ok)
}

func TestByteAlphabetRequiresByteCompleteness(t *testing.T) {
	b := NewBuilder(2)
	require.NoError(t, b.Put([]byte("a"), 0))
	require.NoError(t, b.Put([]byte("b"), 1))
	v, err := b.Build()
	require.NoError(t, err)

	_, err = NewByteAlphabet(v)
	assert.ErrorIs(t, err, ErrInvalidMergeTable)
}

func TestMergeTableRankSemantics(t *testing.T) {
	v := buildByteComplete(t, map[string]int{"ab": 256, "abc": 257}, nil)
	m, err := NewMergeTable(v)
	require.NoError(t, err)

	a := int('a')
	bID := int('b')
	cID := int('c')

	// (a, b) merges into "ab" with rank 256.
	rank, ok := m.RankOf(a, bID)
	require.True(t, ok)
	assert.Equal(t, 256, rank)

	// ("ab", c) merges into "abc".
	rank, ok = m.RankOf(256, cID)
	require.True(t, ok)
	assert.Equal(t, 257, rank)

	// (b, a) has no rule.
	_, ok = m.RankOf(bID, a)
	assert.False(t, ok)

	// Unknown symbol on either side is simply not mergeable.
	_, ok = m.RankOf(9999, a)
	assert.False(t, ok)

	rank, ok = m.RankOfBytes([]byte("ab"))
	require.True(t, ok)
	assert.Equal(t, 256, rank)
}

func TestMergeTableRejectsIncompleteVocabulary(t *testing.T) {
	b := NewBuilder(1)
	require.NoError(t, b.Put([]byte("only"), 0))
	v, err := b.Build()
	require.NoError(t, err)

	_, err = NewMergeTable(v)
	assert.ErrorIs(t, err, ErrInvalidMergeTable)
}
