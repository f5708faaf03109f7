package vocab

import (
	"bufio"
	"encoding/json"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// LoadGPT2 loads a vocabulary from the HuggingFace GPT-2 layout: a
// vocab.json mapping token strings to IDs plus a merges.txt listing the
// merge rules in priority order. Token strings use the GPT-2 byte-level rune
// substitution (see byteLevelRunes) and are decoded back to raw bytes here.
//
// Entries whose decoded text matches a name in specials are registered in
// the reserved special range instead of the ordinary table; the artifact's
// ID must agree with the requested one. The merges list is consumed for
// validation only: merge priority at encode time comes from the symbol IDs
// themselves, which the GPT-2 export assigns in merge order.
func LoadGPT2(vocabPath, mergesPath string, specials map[string]int) (*Vocabulary, error) {
	data, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, errors.Wrapf(err, "reading vocab file %q", vocabPath)
	}
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrapf(ErrInvalidMergeTable, "vocab file %q is not a JSON object of token to ID: %v", vocabPath, err)
	}

	_, runeToByte := byteLevelRunes()
	b := NewBuilder(len(raw))
	for tokenStr, id := range raw {
		token, err := decodeByteLevel(tokenStr, runeToByte)
		if err != nil {
			return nil, errors.WithMessagef(err, "token %q (ID %d)", tokenStr, id)
		}
		if wantID, isSpecial := specials[string(token)]; isSpecial {
			if wantID != id {
				return nil, errors.Wrapf(ErrInvalidMergeTable, "special token %q has ID %d in artifact, %d requested", token, id, wantID)
			}
			if err := b.ReserveSpecial(string(token), id); err != nil {
				return nil, err
			}
			continue
		}
		if err := b.Put(token, id); err != nil {
			return nil, err
		}
	}
	for name, id := range specials {
		if _, seen := b.specials[name]; !seen {
			if err := b.ReserveSpecial(name, id); err != nil {
				return nil, err
			}
		}
	}

	v, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := validateGPT2Merges(v, mergesPath, runeToByte); err != nil {
		return nil, err
	}
	return v, nil
}

// validateGPT2Merges checks every merge rule against the vocabulary: both
// operands and their concatenation must be ordinary tokens, and the result
// must outrank its operands so the merge order is acyclic.
func validateGPT2Merges(v *Vocabulary, mergesPath string, runeToByte map[rune]byte) error {
	f, err := os.Open(mergesPath)
	if err != nil {
		return errors.Wrapf(err, "opening merges file %q", mergesPath)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		left, right, ok := strings.Cut(line, " ")
		if !ok {
			return errors.Wrapf(ErrInvalidMergeTable, "merges line %d: want \"<left> <right>\", got %q", lineNo, line)
		}
		lb, err := decodeByteLevel(left, runeToByte)
		if err != nil {
			return errors.WithMessagef(err, "merges line %d", lineNo)
		}
		rb, err := decodeByteLevel(right, runeToByte)
		if err != nil {
			return errors.WithMessagef(err, "merges line %d", lineNo)
		}
		lid, lok := v.rank(lb)
		rid, rok := v.rank(rb)
		if !lok || !rok {
			return errors.Wrapf(ErrInvalidMergeTable, "merges line %d: operands of %q not in vocabulary", lineNo, line)
		}
		merged := append(append(make([]byte, 0, len(lb)+len(rb)), lb...), rb...)
		mid, mok := v.rank(merged)
		if !mok {
			return errors.Wrapf(ErrInvalidMergeTable, "merges line %d: result of %q not in vocabulary", lineNo, line)
		}
		if mid <= lid || mid <= rid {
			return errors.Wrapf(ErrInvalidMergeTable, "merges line %d: result ID %d does not outrank operands %d, %d", lineNo, mid, lid, rid)
		}
	}
	return errors.Wrap(scanner.Err(), "scanning merges file")
}

// decodeByteLevel reverses the byte-level rune substitution of a vocab.json
// token string. Runes in the substitution table stand for single raw bytes;
// anything else is taken literally as its UTF-8 encoding.
func decodeByteLevel(s string, runeToByte map[rune]byte) ([]byte, error) {
	out := make([]byte, 0, len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError && size == 1 {
			return nil, errors.Wrapf(ErrInvalidMergeTable, "invalid UTF-8 in token string %q", s)
		}
		if b, ok := runeToByte[r]; ok {
			out = append(out, b)
		} else {
			out = utf8.AppendRune(out, r)
		}
		s = s[size:]
	}
	return out, nil
}
