package bpe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpecialMatcherSplit(t *testing.T) {
	v := testVocab(t, nil, map[string]int{"<|a|>": 300, "<|b|>": 301})
	m := newSpecialMatcher(v)

	t.Run("plain only", func(t *testing.T) {
		segs, err := m.split("no specials here", AllowAll)
		require.NoError(t, err)
		require.Len(t, segs, 1)
		assert.Equal(t, "no specials here", segs[0].text)
		assert.False(t, segs[0].special)
	})

	t.Run("interleaved", func(t *testing.T) {
		segs, err := m.split("x<|a|>y<|b|>", AllowAll)
		require.NoError(t, err)
		require.Len(t, segs, 4)
		assert.Equal(t, segment{text: "x"}, segs[0])
		assert.Equal(t, segment{text: "<|a|>", id: 300, special: true}, segs[1])
		assert.Equal(t, segment{text: "y"}, segs[2])
		assert.Equal(t, segment{text: "<|b|>", id: 301, special: true}, segs[3])
	})

	t.Run("adjacent specials", func(t *testing.T) {
		segs, err := m.split("<|b|><|a|>", AllowAll)
		require.NoError(t, err)
		require.Len(t, segs, 2)
		assert.Equal(t, 301, segs[0].id)
		assert.Equal(t, 300, segs[1].id)
	})

	t.Run("disallowed literal rejects the call", func(t *testing.T) {
		_, err := m.split("x<|a|>y", Allow("<|b|>"))
		assert.ErrorIs(t, err, ErrDisallowedSpecial)
	})

	t.Run("empty input", func(t *testing.T) {
		segs, err := m.split("", AllowAll)
		require.NoError(t, err)
		assert.Empty(t, segs)
	})
}

func TestSpecialMatcherPrefersLongestAtSamePosition(t *testing.T) {
	// "<|end|>" is a prefix of "<|end|>x"; the longer literal must win
	// when both start at the same offset.
	v := testVocab(t, nil, map[string]int{"<|end|>": 300, "<|end|>x": 301})
	m := newSpecialMatcher(v)

	segs, err := m.split("<|end|>x", AllowAll)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, 301, segs[0].id)
}

func TestValidateAllowed(t *testing.T) {
	v := testVocab(t, nil, map[string]int{"<|a|>": 300})
	m := newSpecialMatcher(v)

	assert.NoError(t, m.validateAllowed(Allow("<|a|>")))
	assert.NoError(t, m.validateAllowed(AllowAll))
	assert.NoError(t, m.validateAllowed(AllowSet{}))
	assert.ErrorIs(t, m.validateAllowed(Allow("<|zzz|>")), ErrDisallowedSpecial)
}

func TestNoSpecialsRegistered(t *testing.T) {
	v := testVocab(t, nil, nil)
	m := newSpecialMatcher(v)

	segs, err := m.split("<|endoftext|>", AllowSet{})
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.False(t, segs[0].special)
}
