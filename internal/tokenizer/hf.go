package tokenizer

import (
	"fmt"
	"os"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	sugartok "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// HFTokenizer wraps a Hugging Face tokenizer.json definition.
type HFTokenizer struct {
	name      string
	modelType string
	inner     *sugartok.Tokenizer
}

type hfTokenizerHeader struct {
	Model *struct {
		Type string `json:"type"`
	} `json:"model"`
}

var supportedHFModels = map[string]bool{
	"BPE":       true,
	"WordPiece": true,
	"WordLevel": true,
	"Unigram":   true,
}

// LoadHFTokenizer loads tokenizer.json at path. name is reported by Name.
func LoadHFTokenizer(path, name string) (*HFTokenizer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tokenizer definition: %w", err)
	}
	modelType, err := sniffHFModelType(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	tk, err := loadSugarTokenizer(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	tk.WithTruncation(nil)
	tk.WithPadding(nil)

	return &HFTokenizer{name: name, modelType: modelType, inner: tk}, nil
}

// sniffHFModelType checks that data looks like a tokenizer.json before it
// reaches the loader, which panics on some malformed inputs.
func sniffHFModelType(data []byte) (string, error) {
	var hdr hfTokenizerHeader
	if err := json.Unmarshal(data, &hdr); err != nil {
		return "", fmt.Errorf("parse tokenizer definition: %w", err)
	}
	if hdr.Model == nil {
		return "", fmt.Errorf("tokenizer definition has no model section")
	}
	modelType := strings.TrimSpace(hdr.Model.Type)
	if !supportedHFModels[modelType] {
		return "", fmt.Errorf("unsupported tokenizer model: %q", hdr.Model.Type)
	}
	return modelType, nil
}

func loadSugarTokenizer(path string) (tk *sugartok.Tokenizer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid tokenizer definition: %v", r)
		}
	}()
	withQuietStdout(func() {
		tk, err = pretrained.FromFile(path)
	})
	return tk, err
}

var stdoutMu sync.Mutex

// withQuietStdout runs fn with os.Stdout pointed at the null device.
// sugarme models print diagnostics (missing vocab entries, unknown
// tokens) with fmt.Printf, and stdout carries the report.
func withQuietStdout(fn func()) {
	stdoutMu.Lock()
	defer stdoutMu.Unlock()

	null, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		fn()
		return
	}
	saved := os.Stdout
	os.Stdout = null
	defer func() {
		os.Stdout = saved
		_ = null.Close()
	}()
	fn()
}

func (t *HFTokenizer) Tokenize(text string) (tokens []string, err error) {
	if t == nil || t.inner == nil {
		return nil, fmt.Errorf("tokenizer is not initialized")
	}
	if text == "" {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tokenize: %v", r)
		}
	}()
	var encoding *sugartok.Encoding
	withQuietStdout(func() {
		encoding, err = t.inner.EncodeSingle(text, false)
	})
	if err != nil {
		return nil, err
	}
	return encoding.Tokens, nil
}

func (t *HFTokenizer) Name() string { return t.name }

// ModelType is the model section type, e.g. "WordPiece".
func (t *HFTokenizer) ModelType() string { return t.modelType }
