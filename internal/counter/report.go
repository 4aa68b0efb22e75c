package counter

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Report output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Failure kinds in JSON reports.
const (
	KindFileNotFound = "file_not_found"
	KindOther        = "other"
)

type jsonReport struct {
	File      string     `json:"file"`
	Tokenizer string     `json:"tokenizer"`
	Tokens    *int       `json:"tokens,omitempty"`
	Error     *jsonError `json:"error,omitempty"`
}

type jsonError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ValidFormat reports whether format is a known report format.
func ValidFormat(format string) bool {
	return format == FormatText || format == FormatJSON
}

// Report writes the outcome of Count. A nil err reports res; otherwise err
// is reported as either a missing file or a generic failure.
func Report(w io.Writer, format string, inv Invocation, res Result, err error) error {
	if format == FormatJSON {
		return reportJSON(w, inv, res, err)
	}
	return reportText(w, res, err)
}

func reportText(w io.Writer, res Result, err error) error {
	var notFound *FileNotFoundError
	switch {
	case err == nil:
		_, werr := fmt.Fprintf(w, "File: %s\nTokenizer: %s\nNumber of tokens: %d\n", res.File, res.Tokenizer, res.Tokens)
		return werr
	case errors.As(err, &notFound):
		_, werr := fmt.Fprintf(w, "Error: File '%s' not found.\n", notFound.Path)
		return werr
	default:
		_, werr := fmt.Fprintf(w, "An error occurred: %s\n", err)
		return werr
	}
}

func reportJSON(w io.Writer, inv Invocation, res Result, err error) error {
	out := jsonReport{File: inv.FilePath, Tokenizer: inv.Tokenizer}
	var notFound *FileNotFoundError
	switch {
	case err == nil:
		out.File, out.Tokenizer = res.File, res.Tokenizer
		out.Tokens = &res.Tokens
	case errors.As(err, &notFound):
		out.Error = &jsonError{Kind: KindFileNotFound, Message: fmt.Sprintf("File '%s' not found.", notFound.Path)}
	default:
		out.Error = &jsonError{Kind: KindOther, Message: err.Error()}
	}
	b, merr := json.Marshal(out)
	if merr != nil {
		return merr
	}
	b = append(b, '\n')
	_, werr := w.Write(b)
	return werr
}
