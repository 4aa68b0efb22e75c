package tokenizer

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktokenloader "github.com/pkoukk/tiktoken-go-loader"
)

// TiktokenPrefix selects a tiktoken encoding or OpenAI model name
// explicitly, e.g. "tiktoken:cl100k_base" or "tiktoken:gpt-4".
const TiktokenPrefix = "tiktoken:"

var tiktokenEncodings = map[string]bool{
	"cl100k_base": true,
	"o200k_base":  true,
	"p50k_base":   true,
	"p50k_edit":   true,
	"r50k_base":   true,
}

var offlineLoader sync.Once

// TiktokenTokenizer tokenizes with an OpenAI BPE encoding.
type TiktokenTokenizer struct {
	name string
	enc  *tiktoken.Tiktoken
}

// IsTiktokenID reports whether id names a tiktoken encoding, either bare or
// with TiktokenPrefix.
func IsTiktokenID(id string) bool {
	return strings.HasPrefix(id, TiktokenPrefix) || tiktokenEncodings[id]
}

// NewTiktokenTokenizer loads the encoding named by id. BPE ranks come from
// the embedded offline loader, so no network access is needed.
func NewTiktokenTokenizer(id string) (*TiktokenTokenizer, error) {
	offlineLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktokenloader.NewOfflineLoader())
	})

	name := strings.TrimPrefix(id, TiktokenPrefix)
	if name == "" {
		return nil, fmt.Errorf("tiktoken encoding name is required")
	}

	var (
		enc *tiktoken.Tiktoken
		err error
	)
	if tiktokenEncodings[name] {
		enc, err = tiktoken.GetEncoding(name)
	} else {
		enc, err = tiktoken.EncodingForModel(name)
	}
	if err != nil {
		return nil, fmt.Errorf("load tiktoken encoding %q: %w", name, err)
	}
	return &TiktokenTokenizer{name: TiktokenPrefix + name, enc: enc}, nil
}

// Tokenize returns the decoded text of each token. Special token markers
// in the input are encoded as single tokens rather than rejected.
func (t *TiktokenTokenizer) Tokenize(text string) (tokens []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenize: %v", r)
		}
	}()
	ids := t.enc.Encode(text, []string{"all"}, nil)
	tokens = make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = t.enc.Decode([]int{id})
	}
	return tokens, nil
}

func (t *TiktokenTokenizer) Name() string { return t.name }
