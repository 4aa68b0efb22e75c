// Package counter counts the tokens in a file with a named tokenizer.
package counter

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/samcharles93/tokcount/internal/logger"
	"github.com/samcharles93/tokcount/internal/tokenizer"
)

// DefaultTokenizer is used when no tokenizer identifier is given.
const DefaultTokenizer = "bert-base-uncased"

var ErrInvalidUTF8 = errors.New("file is not valid UTF-8 text")

// Provider resolves a tokenizer identifier.
type Provider interface {
	Resolve(ctx context.Context, id string) (tokenizer.Tokenizer, error)
}

// Invocation is one counting request.
type Invocation struct {
	FilePath  string
	Tokenizer string
}

// Result is a successful count.
type Result struct {
	File      string `json:"file"`
	Tokenizer string `json:"tokenizer"`
	Tokens    int    `json:"tokens"`
}

// FileNotFoundError reports that the input file does not exist.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("file %q not found", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

// Count resolves the tokenizer, reads the file and tokenizes its full
// contents. The tokenizer is resolved first, so a bad identifier is
// reported even when the file is also missing. Only a missing input file
// yields *FileNotFoundError.
func Count(ctx context.Context, p Provider, inv Invocation) (Result, error) {
	log := logger.FromContext(ctx).With("file", inv.FilePath, "tokenizer", inv.Tokenizer)

	tk, err := p.Resolve(ctx, inv.Tokenizer)
	if err != nil {
		return Result{}, err
	}
	log.Debug("tokenizer ready", "backend", tk.Name())

	text, err := ReadText(inv.FilePath)
	if err != nil {
		return Result{}, err
	}

	tokens, err := tk.Tokenize(text)
	if err != nil {
		return Result{}, fmt.Errorf("tokenize %s: %w", inv.FilePath, err)
	}
	log.Debug("tokenized", "bytes", len(text), "tokens", len(tokens))

	return Result{
		File:      inv.FilePath,
		Tokenizer: inv.Tokenizer,
		Tokens:    len(tokens),
	}, nil
}

// ReadText reads the whole file as UTF-8 text with universal newlines:
// "\r\n" and lone "\r" become "\n".
func ReadText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", &FileNotFoundError{Path: path, Err: err}
		}
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s: %w", path, ErrInvalidUTF8)
	}
	return normalizeNewlines(string(data)), nil
}

func normalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
