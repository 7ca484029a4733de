// Package backend is the HTTP client for the Parla translation service.
package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// StatusError is returned for non-2xx responses. Body is kept for logs only.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend error (status %d): %s", e.Code, e.Status)
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text           string `json:"text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
}

// TranslateResponse is the body returned by POST /translate.
type TranslateResponse struct {
	TranslatedText   string   `json:"translated_text"`
	DetectedLanguage string   `json:"detected_language"`
	Pronunciation    string   `json:"pronunciation,omitempty"`
	Definitions      []string `json:"definitions,omitempty"`
}

// PhraseRequest is the body of POST /phrases.
type PhraseRequest struct {
	Text           string `json:"text"`
	Translation    string `json:"translation"`
	SourceURL      string `json:"source_url"`
	SourcePlatform string `json:"source_platform"`
	Context        string `json:"context"`
}

// Phrase is a saved phrase as returned by the service.
type Phrase struct {
	ID             int64     `json:"id"`
	Text           string    `json:"text"`
	Translation    string    `json:"translation"`
	SourceURL      string    `json:"source_url"`
	SourcePlatform string    `json:"source_platform"`
	Context        string    `json:"context"`
	CreatedAt      time.Time `json:"created_at"`
}

// Client talks to the service under BaseURL.
type Client struct {
	baseURL    string
	mu         sync.RWMutex
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client. token may be empty for anonymous access.
func NewClient(baseURL, token string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.Named("backend"),
	}
}

// SetToken replaces the bearer token.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Translate calls POST /translate.
func (c *Client) Translate(ctx context.Context, req TranslateRequest) (*TranslateResponse, error) {
	var out TranslateResponse
	if err := c.do(ctx, http.MethodPost, "/translate", req, &out); err != nil {
		return nil, fmt.Errorf("translate: %w", err)
	}
	return &out, nil
}

// SavePhrase calls POST /phrases.
func (c *Client) SavePhrase(ctx context.Context, req PhraseRequest) (*Phrase, error) {
	var out Phrase
	if err := c.do(ctx, http.MethodPost, "/phrases", req, &out); err != nil {
		return nil, fmt.Errorf("save phrase: %w", err)
	}
	return &out, nil
}

// ListPhrases calls GET /phrases.
func (c *Client) ListPhrases(ctx context.Context) ([]Phrase, error) {
	var out []Phrase
	if err := c.do(ctx, http.MethodGet, "/phrases", nil, &out); err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	return out, nil
}

// DeletePhrase calls DELETE /phrases/{id}.
func (c *Client) DeletePhrase(ctx context.Context, id int64) error {
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/phrases/%d", id), nil, nil); err != nil {
		return fmt.Errorf("delete phrase: %w", err)
	}
	return nil
}

// Login calls POST /auth/login and stores the returned token.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	c.SetToken(out.Token)
	return out.Token, nil
}

// User is the authenticated account.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Profile calls GET /auth/me.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &out, nil
}

// Logout forgets the bearer token.
func (c *Client) Logout() { c.SetToken("") }

// LoggedIn reports whether a token is held.
func (c *Client) LoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		data, err := sonic.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("Backend returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return &StatusError{Code: resp.StatusCode, Status: resp.Status, Body: string(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
