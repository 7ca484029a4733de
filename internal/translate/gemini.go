package translate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// ModelResolver returns the current Gemini model from settings
type ModelResolver func() string

// GeminiTranslator translates phrases using the Google Gemini API
type GeminiTranslator struct {
	apiKey        string
	modelResolver ModelResolver
	baseURL       string
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewGeminiTranslator(apiKey string, modelResolver ModelResolver, baseURL string, logger *zap.Logger) *GeminiTranslator {
	if baseURL == "" {
		baseURL = geminiAPIBase
	}
	return &GeminiTranslator{
		apiKey:        apiKey,
		modelResolver: modelResolver,
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
		logger: logger.Named("gemini"),
	}
}

func (g *GeminiTranslator) currentModel() string {
	if g.modelResolver != nil {
		if m := g.modelResolver(); m != "" {
			return m
		}
	}
	return "gemini-2.0-flash"
}

func (g *GeminiTranslator) Name() string {
	return "gemini"
}

func (g *GeminiTranslator) Translate(ctx context.Context, req Request) (*Result, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("Gemini API key not configured")
	}

	model := g.currentModel()
	reqBody := map[string]any{
		"system_instruction": map[string]any{
			"parts": []map[string]string{
				{"text": systemPrompt(req.SourceLang, req.TargetLang)},
			},
		},
		"contents": []map[string]any{
			{
				"parts": []map[string]string{
					{"text": req.Text},
				},
			},
		},
		"generationConfig": map[string]any{
			"temperature":      0.3,
			"responseMimeType": "application/json",
		},
	}

	jsonBody, err := sonic.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s:generateContent", g.baseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Gemini API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Gemini API error (status %d): %s", resp.StatusCode, string(body))
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
			FinishReason string `json:"finishReason"`
		} `json:"candidates"`
		PromptFeedback struct {
			BlockReason string `json:"blockReason"`
		} `json:"promptFeedback"`
	}
	if err := sonic.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		if geminiResp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("Gemini blocked: %s", geminiResp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("empty Gemini response")
	}

	if fr := geminiResp.Candidates[0].FinishReason; fr != "" && fr != "STOP" {
		g.logger.Warn("Unexpected finish reason", zap.String("model", model), zap.String("finishReason", fr))
	}

	ans, err := parseAnswer(geminiResp.Candidates[0].Content.Parts[0].Text)
	if err != nil {
		return nil, err
	}
	return ans.result(g.Name()), nil
}
