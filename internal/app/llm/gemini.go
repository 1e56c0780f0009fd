/*
Package llm wraps the external text-generation provider behind a narrow
interface so the game core can be exercised without network access.

This file implements the Generator contract against the Google Gemini
generateContent REST endpoint.
*/
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"humanorit/internal/pkg/logx"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	// defaultBaseURL is the production Gemini API endpoint.
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// defaultRetryDelay is the pause before the single retry on a
	// transient provider error (429/503).
	defaultRetryDelay = 2 * time.Second
)

// ErrMissingAPIKey is returned when the client is constructed without a key.
var ErrMissingAPIKey = errors.New("gemini api key is not set")

// GeminiClient calls the Gemini generateContent endpoint.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	retryDelay time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

// GeminiOption customizes a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) {
		c.httpClient = hc
	}
}

// WithRetryDelay overrides the pause before the transient-error retry.
func WithRetryDelay(d time.Duration) GeminiOption {
	return func(c *GeminiClient) {
		c.retryDelay = d
	}
}

// NewGeminiClient constructs a Gemini-backed Generator.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) *GeminiClient {
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}

	c := &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    defaultBaseURL,
		retryDelay: defaultRetryDelay,
		httpClient: &http.Client{},
		logger:     logx.Logger().With().Str("component", "gemini").Str("model", model).Logger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Gemini request/response wire types. Only the fields we read are declared.

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends the persona prompt, conversation history, and the new user
// message to Gemini and returns the generated reply text.
//
// A transient provider error (429/503) is retried once after a short pause;
// every other failure is returned to the caller as-is.
func (c *GeminiClient) Generate(ctx context.Context, systemPrompt string, history []Turn, message string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", ErrMissingAPIKey
	}

	contents := make([]geminiContent, 0, len(history)+1)
	for _, t := range history {
		role := t.Role
		if role != RoleUser && role != RoleModel {
			role = RoleUser
		}
		contents = append(contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: t.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  RoleUser,
		Parts: []geminiPart{{Text: message}},
	})

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.9,
			TopP:            0.95,
			MaxOutputTokens: 256,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gemini request: %w", err)
	}

	var text string
	backoff := retry.WithMaxRetries(1, retry.NewConstant(c.retryDelay))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		text, callErr = c.call(ctx, body)
		if callErr != nil && isRetriable(callErr) {
			c.logger.Warn().Err(callErr).Msg("Transient provider error, will retry once.")
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(text), nil
}

// call performs one generateContent request and extracts the first candidate's text.
func (c *GeminiClient) call(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini http error: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini read error: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("gemini status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBytes)))
	}

	var parsed geminiResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return "", fmt.Errorf("gemini decode error: %w", err)
	}

	for _, cand := range parsed.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}

	return "", nil
}

// isRetriable reports whether the provider error is a quota or availability
// blip worth retrying once.
func isRetriable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "status 503") || strings.Contains(msg, "unavailable") {
		return true
	}
	if strings.Contains(msg, "status 429") || strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "quota") {
		return true
	}
	return false
}
