package tokenizer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const wordPieceDir = "testdata/wordpiece"

type fakeFetcher struct {
	path string
	err  error

	repo, revision, filename string
}

func (f *fakeFetcher) Fetch(_ context.Context, repo, revision, filename string) (string, error) {
	f.repo, f.revision, f.filename = repo, revision, filename
	return f.path, f.err
}

func TestTiktokenTokenize(t *testing.T) {
	t.Parallel()

	tk, err := NewTiktokenTokenizer("cl100k_base")
	if err != nil {
		t.Fatalf("NewTiktokenTokenizer: %v", err)
	}
	tokens, err := tk.Tokenize("hello world")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %d: %q", len(tokens), tokens)
	}
	if tokens[0] != "hello" || tokens[1] != " world" {
		t.Fatalf("unexpected tokens: %q", tokens)
	}
	if tk.Name() != "tiktoken:cl100k_base" {
		t.Fatalf("unexpected name: %q", tk.Name())
	}
}

func TestTiktokenSpecialTokenIsSingleToken(t *testing.T) {
	t.Parallel()

	tk, err := NewTiktokenTokenizer("tiktoken:cl100k_base")
	if err != nil {
		t.Fatalf("NewTiktokenTokenizer: %v", err)
	}
	tokens, err := tk.Tokenize("<|endoftext|>")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) != 1 {
		t.Fatalf("expected special marker to be one token, got %q", tokens)
	}
}

func TestTiktokenEmptyText(t *testing.T) {
	t.Parallel()

	tk, err := NewTiktokenTokenizer("cl100k_base")
	if err != nil {
		t.Fatalf("NewTiktokenTokenizer: %v", err)
	}
	tokens, err := tk.Tokenize("")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(tokens) != 0 {
		t.Fatalf("expected no tokens, got %q", tokens)
	}
}

func TestTiktokenRejectsEmptyName(t *testing.T) {
	t.Parallel()
	if _, err := NewTiktokenTokenizer(TiktokenPrefix); err == nil {
		t.Fatal("expected error for empty encoding name")
	}
}

func TestIsTiktokenID(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"cl100k_base":          true,
		"o200k_base":           true,
		"tiktoken:gpt-4":       true,
		"bert-base-uncased":    false,
		"gpt2":                 false,
		"openai/cl100k_base":   false,
		"cl100k_base@main":     false,
		"tiktoken-cl100k_base": false,
	}
	for id, want := range tests {
		if got := IsTiktokenID(id); got != want {
			t.Errorf("IsTiktokenID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestSniffHFModelType(t *testing.T) {
	t.Parallel()

	got, err := sniffHFModelType([]byte(`{"model":{"type":"WordPiece","vocab":{}}}`))
	if err != nil {
		t.Fatalf("sniff: %v", err)
	}
	if got != "WordPiece" {
		t.Fatalf("unexpected model type: %q", got)
	}

	bad := []string{
		`not json`,
		`{"version":"1.0"}`,
		`{"model":{"type":"Mystery"}}`,
		`[]`,
	}
	for _, raw := range bad {
		if _, err := sniffHFModelType([]byte(raw)); err == nil {
			t.Errorf("expected error for %s", raw)
		}
	}
}

func TestLoadHFTokenizerMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := LoadHFTokenizer(filepath.Join(t.TempDir(), "tokenizer.json"), "x"); err == nil {
		t.Fatal("expected error for missing definition")
	}
}

func TestHFTokenizeWordPiece(t *testing.T) {
	t.Parallel()

	tk, err := LoadHFTokenizer(filepath.Join(wordPieceDir, DefinitionFile), "bert-base-uncased")
	if err != nil {
		t.Fatalf("LoadHFTokenizer: %v", err)
	}
	if tk.Name() != "bert-base-uncased" {
		t.Fatalf("unexpected name %q", tk.Name())
	}
	if tk.ModelType() != "WordPiece" {
		t.Fatalf("unexpected model type %q", tk.ModelType())
	}

	cases := []struct {
		text string
		want []string
	}{
		{"Hello, world! Tokenizer", []string{"hello", ",", "world", "!", "token", "##izer"}},
		{"counting tokenizer", []string{"count", "##ing", "token", "##izer"}},
		{"zzz", []string{"[UNK]"}},
		{"", nil},
	}
	for _, tc := range cases {
		got, err := tk.Tokenize(tc.text)
		if err != nil {
			t.Fatalf("Tokenize(%q): %v", tc.text, err)
		}
		if len(got) == 0 && len(tc.want) == 0 {
			continue
		}
		if !slices.Equal(got, tc.want) {
			t.Errorf("Tokenize(%q) = %q, want %q", tc.text, got, tc.want)
		}
		if slices.Contains(got, "[CLS]") || slices.Contains(got, "[SEP]") {
			t.Errorf("Tokenize(%q) added special tokens: %q", tc.text, got)
		}
	}
}

// Not parallel: swaps os.Stdout.
func TestHFTokenizeKeepsStdoutClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefinitionFile)
	def := `{"model":{"type":"BPE","vocab":{"a":0,"b":1},"merges":[]}}`
	if err := os.WriteFile(path, []byte(def), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	captured, err := os.Create(filepath.Join(t.TempDir(), "stdout"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer captured.Close()
	saved := os.Stdout
	os.Stdout = captured
	defer func() { os.Stdout = saved }()

	tk, err := LoadHFTokenizer(path, "no-unk")
	if err == nil {
		_, err = tk.Tokenize("abz")
	}
	os.Stdout = saved
	if err == nil {
		t.Fatal("expected an error for a character outside a vocab without unk token")
	}

	out, rerr := os.ReadFile(captured.Name())
	if rerr != nil {
		t.Fatalf("read captured stdout: %v", rerr)
	}
	if len(out) != 0 {
		t.Fatalf("tokenizer wrote to stdout: %q", out)
	}
}

func TestResolveLocalDirectory(t *testing.T) {
	t.Parallel()

	r := &Resolver{Hub: &fakeFetcher{err: errors.New("hub must not be used")}}
	tk, err := r.Resolve(context.Background(), wordPieceDir)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got, err := tk.Tokenize("hello world")
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if !slices.Equal(got, []string{"hello", "world"}) {
		t.Fatalf("unexpected tokens %q", got)
	}
}

func TestResolveEmptyIdentifier(t *testing.T) {
	t.Parallel()

	r := &Resolver{Hub: &fakeFetcher{}}
	for _, id := range []string{"", "   "} {
		if _, err := r.Resolve(context.Background(), id); !errors.Is(err, ErrEmptyIdentifier) {
			t.Fatalf("Resolve(%q): expected ErrEmptyIdentifier, got %v", id, err)
		}
	}
}

func TestResolveTiktoken(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("hub must not be used")}
	r := &Resolver{Hub: fetcher}
	tk, err := r.Resolve(context.Background(), "cl100k_base")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tk.Name() != "tiktoken:cl100k_base" {
		t.Fatalf("unexpected tokenizer: %q", tk.Name())
	}
	if fetcher.repo != "" {
		t.Fatalf("hub was queried for a tiktoken id")
	}
}

func TestResolveHubUsesRevision(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{err: errors.New("offline")}
	r := &Resolver{Hub: fetcher, Revision: "main"}

	_, err := r.Resolve(context.Background(), "google-bert/bert-base-uncased@v1.0")
	if err == nil || !strings.Contains(err.Error(), "offline") {
		t.Fatalf("expected hub error to surface, got %v", err)
	}
	if fetcher.repo != "google-bert/bert-base-uncased" || fetcher.revision != "v1.0" || fetcher.filename != DefinitionFile {
		t.Fatalf("unexpected fetch: repo=%q revision=%q file=%q", fetcher.repo, fetcher.revision, fetcher.filename)
	}

	_, _ = r.Resolve(context.Background(), "no-such-local-or-remote-model")
	if fetcher.revision != "main" {
		t.Fatalf("expected default revision, got %q", fetcher.revision)
	}
}

func TestResolveHubDefinitionIsValidated(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "tokenizer.json")
	if err := os.WriteFile(path, []byte(`{"model":{"type":"Mystery"}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	r := &Resolver{Hub: &fakeFetcher{path: path}}
	if _, err := r.Resolve(context.Background(), "some-model"); err == nil {
		t.Fatal("expected unsupported model error")
	}
}

func TestResolveLocalDirectoryWithoutDefinition(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := &Resolver{Hub: &fakeFetcher{}}
	_, err := r.Resolve(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "has no tokenizer.json") {
		t.Fatalf("expected missing definition error, got %v", err)
	}
}

func TestResolveWithoutHub(t *testing.T) {
	t.Parallel()
	if _, err := (&Resolver{}).Resolve(context.Background(), "no-such-local-model"); err == nil {
		t.Fatal("expected error without hub")
	}
}

func TestSplitRevision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, repo, rev string
	}{
		{"bert-base-uncased", "bert-base-uncased", ""},
		{"org/name@abc123", "org/name", "abc123"},
		{"@lead", "@lead", ""},
	}
	for _, tc := range tests {
		repo, rev := splitRevision(tc.in)
		if repo != tc.repo || rev != tc.rev {
			t.Errorf("splitRevision(%q) = (%q, %q), want (%q, %q)", tc.in, repo, rev, tc.repo, tc.rev)
		}
	}
}
