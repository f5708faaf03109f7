package vocab

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"os"
	"strconv"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// LoadTiktokenFile parses a ".tiktoken" rank file: one entry per line, the
// token's bytes in standard base64 followed by a space and its integer rank.
// The file is memory-mapped for the duration of the parse; the Builder copies
// every token, so nothing retains the mapping after return.
//
// specials maps special-token literals to their reserved IDs; rank files
// carry only ordinary tokens, so specials always arrive out of band.
func LoadTiktokenFile(path string, specials map[string]int) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening rank file %q", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat rank file %q", path)
	}
	if info.Size() == 0 {
		return nil, errors.Wrapf(ErrInvalidMergeTable, "rank file %q is empty", path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "memory-mapping rank file %q", path)
	}
	defer m.Unmap()

	v, err := ParseTiktoken(m, specials)
	if err != nil {
		return nil, errors.WithMessagef(err, "parsing rank file %q", path)
	}
	return v, nil
}

// ParseTiktoken builds a Vocabulary from rank-file content held in memory.
func ParseTiktoken(data []byte, specials map[string]int) (*Vocabulary, error) {
	// ~8 bytes of base64 plus rank digits per line is a fair size guess.
	b := NewBuilder(len(data) / 10)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		sep := bytes.IndexByte(line, ' ')
		if sep <= 0 || sep == len(line)-1 {
			return nil, errors.Wrapf(ErrInvalidMergeTable, "line %d: want \"<base64> <rank>\", got %q", lineNo, line)
		}
		token, err := base64.StdEncoding.DecodeString(string(line[:sep]))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMergeTable, "line %d: bad base64 token: %v", lineNo, err)
		}
		rank, err := strconv.Atoi(string(line[sep+1:]))
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidMergeTable, "line %d: bad rank: %v", lineNo, err)
		}
		if err := b.Put(token, rank); err != nil {
			return nil, errors.WithMessagef(err, "line %d", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scanning rank data")
	}

	for name, id := range specials {
		if err := b.ReserveSpecial(name, id); err != nil {
			return nil, err
		}
	}
	return b.Build()
}
