package translate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const deeplAPIURL = "https://api-free.deepl.com/v2/translate"

// DeepLTranslator translates phrases using the DeepL API
type DeepLTranslator struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewDeepLTranslator creates a DeepL engine. An empty endpoint uses the
// free API.
func NewDeepLTranslator(apiKey, endpoint string) *DeepLTranslator {
	if endpoint == "" {
		endpoint = deeplAPIURL
	}
	return &DeepLTranslator{
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (d *DeepLTranslator) Name() string {
	return "deepl"
}

func (d *DeepLTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	if d.apiKey == "" {
		return nil, fmt.Errorf("DeepL API key not configured")
	}

	form := url.Values{}
	form.Add("text", req.Text)
	form.Set("target_lang", deeplLangCode(req.TargetLang))
	if req.SourceLang != "" && req.SourceLang != "auto" {
		form.Set("source_lang", deeplLangCode(req.SourceLang))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, string(body))
	}

	var deeplResp struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := sonic.Unmarshal(body, &deeplResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if len(deeplResp.Translations) == 0 {
		return nil, fmt.Errorf("empty DeepL response")
	}

	t := deeplResp.Translations[0]
	return &Result{
		Text:             t.Text,
		DetectedLanguage: strings.ToLower(t.DetectedSourceLanguage),
		Engine:           d.Name(),
	}, nil
}

// deeplLangCode converts ISO 639-1 codes to DeepL format
func deeplLangCode(code string) string {
	mapping := map[string]string{
		"en": "EN",
		"pt": "PT-BR",
		"zh": "ZH",
	}
	base, _, _ := strings.Cut(code, "-")
	if mapped, ok := mapping[strings.ToLower(base)]; ok {
		return mapped
	}
	return strings.ToUpper(code)
}
