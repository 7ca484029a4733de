package translate

import "context"

// Request is one phrase to translate. SourceLang "auto" or empty lets the
// engine detect it.
type Request struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// Result is an engine's answer for one phrase.
type Result struct {
	Text             string   `json:"text"`
	DetectedLanguage string   `json:"detected_language"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
	Engine           string   `json:"engine"`
}

// Translator is the common interface for all translation engines
type Translator interface {
	// Translate translates a single phrase
	Translate(ctx context.Context, req Request) (*Result, error)
	// Name returns the engine name
	Name() string
}
