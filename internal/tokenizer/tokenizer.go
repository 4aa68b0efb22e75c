package tokenizer

// Tokenizer defines the minimal interface used by the counter.
type Tokenizer interface {
	// Tokenize splits text into token strings. Special tokens are not
	// added around the input.
	Tokenize(text string) ([]string, error)
	// Name identifies the backend and the loaded definition.
	Name() string
}
