package enhance

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const DefaultPrompt = "Add fitting emojis to the following Markdown text. " +
	"Keep the wording and every piece of Markdown syntax unchanged. " +
	"Reply with the resulting text only."

const maxResponseBytes = 1 << 20

// ChatProvider talks to an OpenAI-compatible chat completions endpoint.
type ChatProvider struct {
	URL        string
	APIKey     string
	Model      string
	Prompt     string
	HTTPClient *http.Client
}

func (p *ChatProvider) Name() string { return "chat" }

func (p *ChatProvider) Enhance(ctx context.Context, text string) (string, error) {
	prompt := p.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}
	body, err := sjson.Set(`{"messages":[]}`, "model", p.Model)
	if err != nil {
		return "", err
	}
	body, err = sjson.Set(body, "messages.-1", map[string]string{"role": "system", "content": prompt})
	if err != nil {
		return "", err
	}
	body, err = sjson.Set(body, "messages.-1", map[string]string{"role": "user", "content": text})
	if err != nil {
		return "", err
	}
	body, err = sjson.Set(body, "temperature", 0.7)
	if err != nil {
		return "", err
	}

	headers := map[string]string{}
	if p.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.APIKey
	}
	raw, err := postJSON(ctx, p.HTTPClient, p.URL, body, headers)
	if err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if msg := gjson.GetBytes(raw, "error.message"); msg.Exists() {
		return "", fmt.Errorf("chat: api error: %s", msg.String())
	}
	content := gjson.GetBytes(raw, "choices.0.message.content")
	if !content.Exists() {
		return "", fmt.Errorf("chat: no choices returned")
	}
	return strings.TrimSpace(content.String()), nil
}

// TextProvider posts {"text": ...} and expects {"text": ...} back.
type TextProvider struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func (p *TextProvider) Name() string { return "text" }

func (p *TextProvider) Enhance(ctx context.Context, text string) (string, error) {
	body, err := sjson.Set(`{}`, "text", text)
	if err != nil {
		return "", err
	}
	headers := map[string]string{}
	if p.APIKey != "" {
		headers["Authorization"] = "Bearer " + p.APIKey
	}
	raw, err := postJSON(ctx, p.HTTPClient, p.URL, body, headers)
	if err != nil {
		return "", fmt.Errorf("text: %w", err)
	}
	out := gjson.GetBytes(raw, "text")
	if out.Type != gjson.String {
		return "", fmt.Errorf("text: response has no text field")
	}
	return out.String(), nil
}

func postJSON(ctx context.Context, client *http.Client, url, body string, headers map[string]string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("invalid json response")
	}
	return raw, nil
}

// FromConfig builds the provider chain. Tiers without a URL are skipped.
func FromConfig(primaryURL, primaryKey, model, prompt, fallbackURL, fallbackKey string) []Provider {
	var out []Provider
	if strings.TrimSpace(primaryURL) != "" {
		out = append(out, &ChatProvider{URL: primaryURL, APIKey: primaryKey, Model: model, Prompt: prompt})
	}
	if strings.TrimSpace(fallbackURL) != "" {
		out = append(out, &TextProvider{URL: fallbackURL, APIKey: fallbackKey})
	}
	return out
}
