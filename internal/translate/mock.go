package translate

import (
	"context"
	"fmt"
	"strings"
)

var spanishPhrases = map[string]string{
	"Hello":        "Hola",
	"Thank you":    "Gracias",
	"How are you?": "¿Cómo estás?",
	"Good morning": "Buenos días",
	"Good night":   "Buenas noches",
}

// MockTranslator answers from a small dictionary and otherwise tags the
// text with the target language. It is used when no engine key is set.
type MockTranslator struct{}

func (MockTranslator) Name() string { return "mock" }

func (MockTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{DetectedLanguage: "en", Engine: "mock"}
	if base, _, _ := strings.Cut(req.TargetLang, "-"); base == "es" {
		if t, ok := spanishPhrases[req.Text]; ok {
			res.Text = t
			return res, nil
		}
	}
	res.Text = fmt.Sprintf("[%s] %s", req.TargetLang, req.Text)
	return res, nil
}
