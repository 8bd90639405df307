package enrich

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
)

// Provider generates text for a prompt. Implementations must honour ctx cancellation.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

const systemPrompt = "You are a cloud infrastructure expert. Your answers are direct and professional."

// Default models and endpoints.
const (
	DefaultClaudeModel = "claude-3-5-haiku-latest"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"

	claudeBaseURL = "https://api.anthropic.com"
	geminiBaseURL = "https://generativelanguage.googleapis.com"
	openAIBaseURL = "https://api.openai.com"

	maxOutputTokens = 400
)

var errEmptyResponse = errors.New("empty response")

// HTTPProvider holds what every provider needs to make a call.
type HTTPProvider struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func (p HTTPProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (p HTTPProvider) base(def string) string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return def
}

func (p HTTPProvider) model(def string) string {
	if p.Model != "" {
		return p.Model
	}
	return def
}

// postJSON sends body as JSON and decodes a 2xx response into out.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ClaudeProvider calls the Anthropic Messages API.
type ClaudeProvider struct{ HTTPProvider }

func (ClaudeProvider) Name() string { return "claude" }

func (p ClaudeProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      p.model(DefaultClaudeModel),
		"max_tokens": maxOutputTokens,
		"system":     systemPrompt,
		"messages":   []map[string]string{{"role": "user", "content": prompt}},
	}
	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	headers := map[string]string{
		"x-api-key":         p.APIKey,
		"anthropic-version": "2023-06-01",
	}
	if err := postJSON(ctx, p.client(), p.base(claudeBaseURL)+"/v1/messages", headers, body, &out); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			sb.WriteString(c.Text)
		}
	}
	return nonEmpty(sb.String())
}

// GeminiProvider calls the Gemini generateContent API.
type GeminiProvider struct{ HTTPProvider }

func (GeminiProvider) Name() string { return "gemini" }

func (p GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"systemInstruction": map[string]any{"parts": []map[string]string{{"text": systemPrompt}}},
		"contents":          []map[string]any{{"role": "user", "parts": []map[string]string{{"text": prompt}}}},
		"generationConfig":  map[string]any{"maxOutputTokens": maxOutputTokens},
	}
	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.base(geminiBaseURL), p.model(DefaultGeminiModel))
	if err := postJSON(ctx, p.client(), url, map[string]string{"x-goog-api-key": p.APIKey}, body, &out); err != nil {
		return "", err
	}
	if len(out.Candidates) == 0 {
		return "", errEmptyResponse
	}

	var sb strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return nonEmpty(sb.String())
}

// OpenAIProvider calls the OpenAI chat completions API.
type OpenAIProvider struct{ HTTPProvider }

func (OpenAIProvider) Name() string { return "openai" }

func (p OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":      p.model(DefaultOpenAIModel),
		"max_tokens": maxOutputTokens,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
	}
	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	headers := map[string]string{"Authorization": "Bearer " + p.APIKey}
	if err := postJSON(ctx, p.client(), p.base(openAIBaseURL)+"/v1/chat/completions", headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errEmptyResponse
	}
	return nonEmpty(out.Choices[0].Message.Content)
}

func nonEmpty(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errEmptyResponse
	}
	return s, nil
}

// Environment variables holding provider API keys.
const (
	EnvClaudeKey = "ANTHROPIC_API_KEY"
	EnvGeminiKey = "GEMINI_API_KEY"
	EnvOpenAIKey = "OPENAI_API_KEY"
)

// ProviderNames lists the supported providers in default fallback order.
var ProviderNames = []string{"claude", "gemini", "openai"}

// NewProvider builds a named provider. It returns false for an unknown name or an
// empty key, since a provider without credentials can never succeed.
func NewProvider(name, apiKey, model string) (Provider, bool) {
	if apiKey == "" {
		return nil, false
	}
	base := HTTPProvider{APIKey: apiKey, Model: model}
	switch name {
	case "claude":
		return ClaudeProvider{base}, true
	case "gemini":
		return GeminiProvider{base}, true
	case "openai":
		return OpenAIProvider{base}, true
	default:
		return nil, false
	}
}

// KeyEnv returns the environment variable that holds the key for provider name.
func KeyEnv(name string) string {
	switch name {
	case "claude":
		return EnvClaudeKey
	case "gemini":
		return EnvGeminiKey
	case "openai":
		return EnvOpenAIKey
	default:
		return ""
	}
}
