package tokenizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samcharles93/tokcount/internal/logger"
)

// DefinitionFile is the file name of a Hugging Face tokenizer definition.
const DefinitionFile = "tokenizer.json"

var ErrEmptyIdentifier = errors.New("tokenizer identifier is empty")

// Fetcher resolves a file in a hub repository to a local path.
type Fetcher interface {
	Fetch(ctx context.Context, repo, revision, filename string) (string, error)
}

// Resolver maps tokenizer identifiers to loaded tokenizers.
//
// Identifiers are tried in order as: a tiktoken encoding ("cl100k_base",
// "tiktoken:gpt-4"), an existing local tokenizer.json or directory holding
// one, and finally a hub repository id with an optional "@revision".
type Resolver struct {
	Hub Fetcher
	// Revision is used when the identifier carries no "@revision".
	Revision string
}

// Resolve loads the tokenizer named by id.
func (r *Resolver) Resolve(ctx context.Context, id string) (Tokenizer, error) {
	log := logger.FromContext(ctx).With("tokenizer", id)

	if strings.TrimSpace(id) == "" {
		return nil, ErrEmptyIdentifier
	}

	if IsTiktokenID(id) {
		log.Debug("resolving tiktoken encoding")
		return NewTiktokenTokenizer(id)
	}

	if path, ok, err := localDefinition(id); err != nil {
		return nil, err
	} else if ok {
		log.Debug("loading local tokenizer definition", "path", path)
		return LoadHFTokenizer(path, id)
	}

	if r.Hub == nil {
		return nil, fmt.Errorf("%q is not a local tokenizer and no hub is configured", id)
	}
	repo, revision := splitRevision(id)
	if revision == "" {
		revision = r.Revision
	}
	path, err := r.Hub.Fetch(ctx, repo, revision, DefinitionFile)
	if err != nil {
		return nil, fmt.Errorf("resolve tokenizer %q: %w", id, err)
	}
	tk, err := LoadHFTokenizer(path, id)
	if err != nil {
		return nil, err
	}
	log.Debug("loaded hub tokenizer", "path", path, "model", tk.ModelType())
	return tk, nil
}

// localDefinition reports the tokenizer.json for id when id names an
// existing file or directory.
func localDefinition(id string) (string, bool, error) {
	info, err := os.Stat(id)
	if err != nil {
		return "", false, nil
	}
	if !info.IsDir() {
		return id, true, nil
	}
	path := filepath.Join(id, DefinitionFile)
	if _, err := os.Stat(path); err != nil {
		return "", false, fmt.Errorf("directory %s has no %s", id, DefinitionFile)
	}
	return path, true, nil
}

func splitRevision(id string) (string, string) {
	if i := strings.LastIndex(id, "@"); i > 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}
