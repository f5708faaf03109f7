// Package encodings defines the named reference encodings (gpt2, r50k_base,
// p50k_base, cl100k_base, o200k_base) and loads them into ready-to-use
// tokenizer handles.
//
// The definition table is read-only; Load builds a fresh immutable
// *bpe.Codec on every call, so multiple vocabularies coexist safely and
// there is no process-wide mutable registry. Callers that load repeatedly
// should hold on to the returned handle.
package encodings

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/bpekit/bpekit/bpe"
	"github.com/bpekit/bpekit/hub"
	"github.com/bpekit/bpekit/vocab"
)

// EndOfText is the end-of-text marker literal shared by all reference
// encodings.
const EndOfText = "<|endoftext|>"

// Split patterns carried verbatim from the reference encoding definitions.
// They require lookahead, hence regexp2 in the bpe package.
const (
	gpt2Pattern = `'s|'t|'re|'ve|'m|'ll|'d| ?\p{L}+| ?\p{N}+| ?[^\s\p{L}\p{N}]+|\s+(?!\S)|\s+`

	cl100kPattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

	o200kPattern = `[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]*[\p{Ll}\p{Lm}\p{Lo}\p{M}]+(?i:'s|'t|'re|'ve|'m|'ll|'d)?|` +
		`[^\r\n\p{L}\p{N}]?[\p{Lu}\p{Lt}\p{Lm}\p{Lo}\p{M}]+[\p{Ll}\p{Lm}\p{Lo}\p{M}]*(?i:'s|'t|'re|'ve|'m|'ll|'d)?|` +
		`\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n/]*|\s*[\r\n]+|\s+(?!\S)|\s+`
)

// Definition describes one named encoding: where its rank file lives, how
// text is split before merging, and which special tokens it reserves.
type Definition struct {
	Name          string
	URL           string
	Pattern       string
	SpecialTokens map[string]int
}

// artifactName keys the hub cache entry. Stable per URL so concurrent
// processes share one cached copy.
func (d Definition) artifactName() string {
	for i := len(d.URL) - 1; i >= 0; i-- {
		if d.URL[i] == '/' {
			return d.URL[i+1:]
		}
	}
	return d.URL
}

const azureEncodings = "https://openaipublic.blob.core.windows.net/encodings/"

var definitions = map[string]Definition{
	// gpt2 shares the r50k ranks and produces identical token sequences;
	// it exists as a separate name for callers keyed by model family.
	"gpt2": {
		Name:          "gpt2",
		URL:           azureEncodings + "r50k_base.tiktoken",
		Pattern:       gpt2Pattern,
		SpecialTokens: map[string]int{EndOfText: 50256},
	},
	"r50k_base": {
		Name:          "r50k_base",
		URL:           azureEncodings + "r50k_base.tiktoken",
		Pattern:       gpt2Pattern,
		SpecialTokens: map[string]int{EndOfText: 50256},
	},
	"p50k_base": {
		Name:          "p50k_base",
		URL:           azureEncodings + "p50k_base.tiktoken",
		Pattern:       gpt2Pattern,
		SpecialTokens: map[string]int{EndOfText: 50256},
	},
	"p50k_edit": {
		Name:    "p50k_edit",
		URL:     azureEncodings + "p50k_base.tiktoken",
		Pattern: gpt2Pattern,
		SpecialTokens: map[string]int{
			EndOfText:        50256,
			"<|fim_prefix|>": 50281,
			"<|fim_middle|>": 50282,
			"<|fim_suffix|>": 50283,
		},
	},
	"cl100k_base": {
		Name:    "cl100k_base",
		URL:     azureEncodings + "cl100k_base.tiktoken",
		Pattern: cl100kPattern,
		SpecialTokens: map[string]int{
			EndOfText:         100257,
			"<|fim_prefix|>":  100258,
			"<|fim_middle|>":  100259,
			"<|fim_suffix|>":  100260,
			"<|endofprompt|>": 100276,
		},
	},
	"o200k_base": {
		Name:    "o200k_base",
		URL:     azureEncodings + "o200k_base.tiktoken",
		Pattern: o200kPattern,
		SpecialTokens: map[string]int{
			EndOfText:         199999,
			"<|endofprompt|>": 200018,
		},
	},
}

// Names lists the registered encoding names, sorted.
func Names() []string {
	names := make([]string, 0, len(definitions))
	for name := range definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the definition for a named encoding.
func Get(name string) (Definition, error) {
	def, ok := definitions[name]
	if !ok {
		return Definition{}, errors.Errorf("unknown encoding %q (known: %v)", name, Names())
	}
	return def, nil
}

// Load fetches (or reuses from cache) the named encoding's rank file and
// builds a tokenizer handle for it.
func Load(name string) (*bpe.Codec, error) {
	return LoadContext(context.Background(), name)
}

// LoadContext is Load with caller-controlled cancellation of the artifact
// fetch. Once tables are loaded the codec never blocks on I/O again.
func LoadContext(ctx context.Context, name string) (*bpe.Codec, error) {
	def, err := Get(name)
	if err != nil {
		return nil, err
	}
	path, err := hub.Fetch(ctx, def.URL, def.artifactName())
	if err != nil {
		return nil, err
	}
	return LoadFromFile(name, path)
}

// LoadFromFile builds the named encoding from an already-downloaded rank
// file, bypassing the hub cache. Useful for vendored or air-gapped setups.
func LoadFromFile(name, path string) (*bpe.Codec, error) {
	def, err := Get(name)
	if err != nil {
		return nil, err
	}
	v, err := vocab.LoadTiktokenFile(path, def.SpecialTokens)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading encoding %q", name)
	}
	codec, err := bpe.NewCodec(v, bpe.Config{Name: def.Name, Pattern: def.Pattern})
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("loaded encoding %q: %d ordinary tokens, %d specials", name, v.Size(), len(def.SpecialTokens))
	return codec, nil
}
