package vocab

import "github.com/pkg/errors"

// Sentinel errors for vocabulary construction and lookup.
//
// Load-time errors (ErrInvalidMergeTable, ErrDuplicateSpecial) are fatal and
// abort construction. Lookup errors are per-call and leave the vocabulary
// untouched. All are comparable with errors.Is through wrapping.
var (
	// ErrInvalidMergeTable marks a corrupt or inconsistent vocabulary
	// artifact: missing byte-level entries, duplicate IDs or byte
	// sequences, or merge rules that reference unknown tokens.
	ErrInvalidMergeTable = errors.New("invalid merge table")

	// ErrUnknownSymbol is returned when a symbol ID is outside every
	// range known to the vocabulary.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrNotInVocabulary is returned by LookupID when no ordinary token
	// matches the given byte sequence. Callers decide the fallback.
	ErrNotInVocabulary = errors.New("not in vocabulary")

	// ErrDuplicateSpecial is returned when a special token name or ID is
	// registered twice.
	ErrDuplicateSpecial = errors.New("duplicate special token")
)
