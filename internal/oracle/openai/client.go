// Package openai implements the extraction, matching, and room-pairing
// oracles against an OpenAI-compatible chat completions gateway.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultBaseURL is the gateway endpoint used when none is configured.
const DefaultBaseURL = "https://api.llmgateway.ciridae.app"

// Client talks to an OpenAI-compatible gateway. It implements
// oracle.Extraction, oracle.Matching, and oracle.RoomPairing. Text-only
// operations use TextModel; page-image operations use VisionModel.
type Client struct {
	baseURL     string
	apiKey      string
	textModel   string
	visionModel string
	httpc       *http.Client
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the internal HTTP client, e.g. for custom
// timeouts or tracing.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpc = c
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// New creates a gateway client. Model responses can take minutes on dense
// pages, so the client has no overall timeout; callers bound requests with
// their context.
func New(baseURL, apiKey, textModel, visionModel string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 180 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   16,
	}
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		textModel:   textModel,
		visionModel: visionModel,
		httpc:       &http.Client{Timeout: 0, Transport: tr},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// complete posts one chat completion and returns the model's text output
// with any code fences stripped.
func (c *Client) complete(ctx context.Context, model string, messages []chatMessage) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("gateway API key is empty")
	}
	body := map[string]any{
		"model":           model,
		"messages":        messages,
		"temperature":     0,
		"response_format": map[string]string{"type": "json_object"},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gateway %s: status %d: %s", model, resp.StatusCode, truncate(raw, 512))
	}

	var envelope struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Choices) == 0 {
		return "", fmt.Errorf("gateway %s: no choices in response", model)
	}

	out := stripCodeFences(envelope.Choices[0].Message.Content)
	if out == "" {
		return "", fmt.Errorf("gateway %s: empty completion", model)
	}
	c.logger.Debug("chat completion",
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("output_bytes", len(out)))
	return out, nil
}

// completeText runs a text-only completion against the text model.
func (c *Client) completeText(ctx context.Context, system, user string) (string, error) {
	return c.complete(ctx, c.textModel, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

// completeVision runs a completion with a PNG page image against the vision
// model.
func (c *Client) completeVision(ctx context.Context, system string, pageImage []byte) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pageImage)
	return c.complete(ctx, c.visionModel, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: "Extract data from this page."},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}},
	})
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
