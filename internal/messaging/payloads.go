package messaging

// TranslateRequest asks the background to translate text.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"sourceLang"`
	TargetLang string `json:"targetLang"`
}

// TranslateResult is the data of a successful translate response.
type TranslateResult struct {
	Translation      string   `json:"translation"`
	DetectedLanguage string   `json:"detectedLanguage,omitempty"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
}

// SavePhraseRequest asks the background to persist a phrase.
type SavePhraseRequest struct {
	Original       string `json:"original"`
	Translation    string `json:"translation"`
	Context        string `json:"context"`
	SourceURL      string `json:"sourceUrl"`
	SourcePlatform string `json:"sourcePlatform,omitempty"`
}

// SavedPhrase is the data of a successful savePhrase response and the
// payload of the phraseAdded broadcast.
type SavedPhrase struct {
	ID             int64  `json:"id"`
	Text           string `json:"text"`
	Translation    string `json:"translation"`
	SourceURL      string `json:"source_url"`
	SourcePlatform string `json:"source_platform"`
	Context        string `json:"context"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// ToggleExtension is the toggleExtension broadcast payload.
type ToggleExtension struct {
	Active bool `json:"active"`
}
