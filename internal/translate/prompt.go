package translate

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// systemPrompt returns the instructions shared by the LLM engines.
func systemPrompt(sourceLang, targetLang string) string {
	return fmt.Sprintf(
		"You are a language tutor helping a learner who is watching videos with captions. "+
			"Translate the phrase from %s to %s. Keep the translation natural and short. "+
			"Respond with ONLY a JSON object with the keys "+
			`"translation", "detected_language" (ISO 639-1), "pronunciation" (how the original is pronounced, may be empty) `+
			`and "definitions" (a short array of meanings for single words, otherwise empty).`,
		langName(sourceLang), langName(targetLang),
	)
}

type llmAnswer struct {
	Translation      string   `json:"translation"`
	DetectedLanguage string   `json:"detected_language"`
	Pronunciation    string   `json:"pronunciation"`
	Definitions      []string `json:"definitions"`
}

// parseAnswer decodes an LLM reply, tolerating prose around the JSON object.
func parseAnswer(content string) (*llmAnswer, error) {
	var ans llmAnswer
	if err := sonic.UnmarshalString(content, &ans); err != nil {
		start := strings.Index(content, "{")
		end := strings.LastIndex(content, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("parse translation: %w (raw: %s)", err, content)
		}
		if err2 := sonic.UnmarshalString(content[start:end+1], &ans); err2 != nil {
			return nil, fmt.Errorf("parse translation: %w (raw: %s)", err2, content)
		}
	}
	if strings.TrimSpace(ans.Translation) == "" {
		return nil, fmt.Errorf("empty translation (raw: %s)", content)
	}
	return &ans, nil
}

func (a *llmAnswer) result(engine string) *Result {
	return &Result{
		Text:             strings.TrimSpace(a.Translation),
		DetectedLanguage: strings.ToLower(a.DetectedLanguage),
		Pronunciation:    a.Pronunciation,
		Definitions:      a.Definitions,
		Engine:           engine,
	}
}

func langName(code string) string {
	names := map[string]string{
		"ko":   "Korean",
		"en":   "English",
		"ja":   "Japanese",
		"zh":   "Chinese",
		"es":   "Spanish",
		"fr":   "French",
		"de":   "German",
		"pt":   "Portuguese",
		"it":   "Italian",
		"ru":   "Russian",
		"ar":   "Arabic",
		"hi":   "Hindi",
		"auto": "the detected language",
		"":     "the detected language",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
