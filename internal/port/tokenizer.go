package port

// Tokenizer turns text into the terms used for lexical scoring.
type Tokenizer interface {
	Tokenize(text string) []string
}
