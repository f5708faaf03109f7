package bpe

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/bpekit/bpekit/vocab"
)

// AllowSet is the caller's explicit allow-list for special-token literals in
// the input text. The zero value allows none. Build one with Allow, or use
// AllowAll to admit every special the vocabulary registers.
type AllowSet struct {
	all   bool
	names map[string]struct{}
}

// Allow returns an AllowSet admitting exactly the named specials.
func Allow(names ...string) AllowSet {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return AllowSet{names: set}
}

// AllowAll admits every special token registered in the vocabulary.
var AllowAll = AllowSet{all: true}

func (s AllowSet) contains(name string) bool {
	if s.all {
		return true
	}
	_, ok := s.names[name]
	return ok
}

// segment is one span of input after special-token extraction: either a
// literal special (id valid) or a plain byte span to be merged normally.
type segment struct {
	text    string
	id      int
	special bool
}

// specialMatcher recognizes the vocabulary's registered special literals in
// raw input. It is compiled once at load time and is immutable afterwards.
//
// Only registered literals are ever detected: special-looking text the
// vocabulary does not know stays ordinary text, so the matcher fails open by
// construction. Enforcement of the caller's allow-list happens during the
// scan, before any merging work is done.
//
// TODO: for vocabularies with hundreds of specials, replace the per-literal
// strings.Index scan with a single-pass Aho-Corasick automaton built here.
type specialMatcher struct {
	literals []string
	ids      map[string]int
}

func newSpecialMatcher(v *vocab.Vocabulary) *specialMatcher {
	names := v.SpecialTokens()
	m := &specialMatcher{
		literals: names,
		ids:      make(map[string]int, len(names)),
	}
	for _, name := range names {
		id, err := v.SpecialID(name)
		if err != nil {
			continue // unreachable: names came from the vocabulary
		}
		m.ids[name] = id
	}
	// Longest first so that overlapping literals at the same position
	// resolve deterministically to the longest match.
	sort.Slice(m.literals, func(i, j int) bool {
		if len(m.literals[i]) != len(m.literals[j]) {
			return len(m.literals[i]) > len(m.literals[j])
		}
		return m.literals[i] < m.literals[j]
	})
	return m
}

// validateAllowed rejects allow-list entries naming specials the vocabulary
// does not register.
func (m *specialMatcher) validateAllowed(allowed AllowSet) error {
	for name := range allowed.names {
		if _, ok := m.ids[name]; !ok {
			return errors.Wrapf(ErrDisallowedSpecial, "allow-list names %q, which is not registered in the vocabulary", name)
		}
	}
	return nil
}

// split scans text for registered special literals and cuts it into an
// ordered sequence of special and plain segments. A registered literal that
// is not in the allow-list fails the whole call with ErrDisallowedSpecial.
func (m *specialMatcher) split(text string, allowed AllowSet) ([]segment, error) {
	if len(m.literals) == 0 || text == "" {
		if text == "" {
			return nil, nil
		}
		return []segment{{text: text}}, nil
	}

	var segments []segment
	for len(text) > 0 {
		bestIdx := -1
		bestLit := ""
		for _, lit := range m.literals {
			idx := strings.Index(text, lit)
			if idx < 0 {
				continue
			}
			// Literals are ordered longest-first, so a strictly earlier
			// index is the only way to displace the current best.
			if bestIdx == -1 || idx < bestIdx {
				bestIdx = idx
				bestLit = lit
			}
		}
		if bestIdx == -1 {
			segments = append(segments, segment{text: text})
			break
		}
		if !allowed.contains(bestLit) {
			return nil, errors.Wrapf(ErrDisallowedSpecial, "text contains %q, which is not in the allow-list", bestLit)
		}
		if bestIdx > 0 {
			segments = append(segments, segment{text: text[:bestIdx]})
		}
		segments = append(segments, segment{text: bestLit, id: m.ids[bestLit], special: true})
		text = text[bestIdx+len(bestLit):]
	}
	return segments, nil
}
