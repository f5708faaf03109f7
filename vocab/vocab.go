package vocab

import (
	"sort"

	"github.com/pkg/errors"
)

// Vocabulary is the immutable bidirectional mapping between symbol IDs and
// canonical byte sequences, plus the reserved special-token range. It is
// built once by a Builder (or one of the artifact loaders) and is read-only
// afterwards, so it can be shared across any number of concurrent encoders
// and decoders without locking.
type Vocabulary struct {
	// bytesByID is indexed by symbol ID; nil entries are unassigned IDs.
	// Covers both ordinary and special tokens.
	bytesByID [][]byte

	// idByBytes maps a canonical byte sequence to its ordinary symbol ID.
	// Special tokens are deliberately absent: they are never merge targets.
	idByBytes map[string]int

	// specialByName maps a special-token literal to its reserved ID.
	specialByName map[string]int

	ordinaryCount int
}

// Builder accumulates vocabulary entries before freezing them into a
// Vocabulary. It enforces the ID/byte-sequence bijection as entries arrive.
type Builder struct {
	entries  map[int][]byte
	byBytes  map[string]int
	specials map[string]int
	maxID    int
}

// NewBuilder returns a Builder with capacity hints for sizeHint ordinary
// tokens.
func NewBuilder(sizeHint int) *Builder {
	return &Builder{
		entries:  make(map[int][]byte, sizeHint),
		byBytes:  make(map[string]int, sizeHint),
		specials: make(map[string]int),
		maxID:    -1,
	}
}

// Put registers an ordinary token. The same ID or the same byte sequence
// appearing twice makes the artifact inconsistent and fails with
// ErrInvalidMergeTable; an ID already reserved for a special token fails
// with ErrDuplicateSpecial.
func (b *Builder) Put(token []byte, id int) error {
	if id < 0 {
		return errors.Wrapf(ErrInvalidMergeTable, "negative symbol ID %d", id)
	}
	if len(token) == 0 {
		return errors.Wrapf(ErrInvalidMergeTable, "empty byte sequence for symbol ID %d", id)
	}
	if _, exists := b.entries[id]; exists {
		return errors.Wrapf(ErrInvalidMergeTable, "symbol ID %d assigned twice", id)
	}
	if prev, exists := b.byBytes[string(token)]; exists {
		return errors.Wrapf(ErrInvalidMergeTable, "byte sequence %q assigned to both %d and %d", token, prev, id)
	}
	for name, sid := range b.specials {
		if sid == id {
			return errors.Wrapf(ErrDuplicateSpecial, "symbol ID %d already reserved for special token %q", id, name)
		}
	}
	owned := make([]byte, len(token))
	copy(owned, token)
	b.entries[id] = owned
	b.byBytes[string(owned)] = id
	if id > b.maxID {
		b.maxID = id
	}
	return nil
}

// ReserveSpecial registers a literal string token in the special range.
// Special IDs must not collide with each other or with ordinary IDs.
func (b *Builder) ReserveSpecial(name string, id int) error {
	if name == "" {
		return errors.Wrap(ErrDuplicateSpecial, "special token name is empty")
	}
	if _, exists := b.specials[name]; exists {
		return errors.Wrapf(ErrDuplicateSpecial, "special token %q registered twice", name)
	}
	if _, exists := b.entries[id]; exists {
		return errors.Wrapf(ErrDuplicateSpecial, "special token %q collides with ordinary symbol ID %d", name, id)
	}
	for other, otherID := range b.specials {
		if otherID == id {
			return errors.Wrapf(ErrDuplicateSpecial, "special tokens %q and %q share ID %d", other, name, id)
		}
	}
	b.specials[name] = id
	if id > b.maxID {
		b.maxID = id
	}
	return nil
}

// Build freezes the accumulated entries into an immutable Vocabulary.
func (b *Builder) Build() (*Vocabulary, error) {
	if len(b.entries) == 0 {
		return nil, errors.Wrap(ErrInvalidMergeTable, "vocabulary has no ordinary tokens")
	}
	v := &Vocabulary{
		bytesByID:     make([][]byte, b.maxID+1),
		idByBytes:     b.byBytes,
		specialByName: b.specials,
		ordinaryCount: len(b.entries),
	}
	for id, token := range b.entries {
		v.bytesByID[id] = token
	}
	for name, id := range b.specials {
		v.bytesByID[id] = []byte(name)
	}
	return v, nil
}

// LookupBytes returns the canonical byte sequence for a symbol ID, special
// tokens included. Fails with ErrUnknownSymbol outside the loaded range.
func (v *Vocabulary) LookupBytes(id int) ([]byte, error) {
	if id < 0 || id >= len(v.bytesByID) || v.bytesByID[id] == nil {
		return nil, errors.Wrapf(ErrUnknownSymbol, "symbol ID %d", id)
	}
	return v.bytesByID[id], nil
}

// LookupID returns the ordinary symbol ID for a byte sequence, or
// ErrNotInVocabulary if no entry exists. Special tokens are not found here;
// they are resolved by name through SpecialID.
func (v *Vocabulary) LookupID(token []byte) (int, error) {
	if id, ok := v.idByBytes[string(token)]; ok {
		return id, nil
	}
	return 0, errors.Wrapf(ErrNotInVocabulary, "byte sequence %q", token)
}

// rank returns the ordinary symbol ID for a byte sequence without error
// plumbing. Hot path for the merge loop.
func (v *Vocabulary) rank(token []byte) (int, bool) {
	id, ok := v.idByBytes[string(token)]
	return id, ok
}

// SpecialID returns the reserved ID for a special-token literal.
func (v *Vocabulary) SpecialID(name string) (int, error) {
	if id, ok := v.specialByName[name]; ok {
		return id, nil
	}
	return 0, errors.Wrapf(ErrUnknownSymbol, "special token %q not registered", name)
}

// IsSpecial reports whether the symbol ID sits in the reserved special range.
func (v *Vocabulary) IsSpecial(id int) bool {
	for _, sid := range v.specialByName {
		if sid == id {
			return true
		}
	}
	return false
}

// SpecialTokens returns the registered special literals sorted by ID.
func (v *Vocabulary) SpecialTokens() []string {
	names := make([]string, 0, len(v.specialByName))
	for name := range v.specialByName {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return v.specialByName[names[i]] < v.specialByName[names[j]]
	})
	return names
}

// Size returns the number of ordinary tokens.
func (v *Vocabulary) Size() int {
	return v.ordinaryCount
}
