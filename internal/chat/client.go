package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

type Reply struct {
	Text   string `json:"text"`
	AIMood string `json:"aiMood"`
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	http    *http.Client
	log     zerolog.Logger
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(apiKey, model string, timeout time.Duration, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: DefaultBaseURL,
		timeout: timeout,
		http:    http.DefaultClient,
		log:     log.With().Str("component", "chat").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents       []content       `json:"contents"`
	SafetySettings []safetySetting `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Reply sends message with the prior conversation and returns the model's
// answer. The caller's mood is logged but not sent to the model.
func (c *Client) Reply(ctx context.Context, message string, history []Turn, mood string) (Reply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return Reply{}, ErrEmptyMessage
	}

	contents := append(buildHistory(history), content{Role: "user", Parts: []part{{Text: message}}})
	c.log.Debug().Str("mood", mood).Int("turns", len(contents)).Msg("chat request")
	settings := make([]safetySetting, len(harmCategories))
	for i, cat := range harmCategories {
		settings[i] = safetySetting{Category: cat, Threshold: "BLOCK_NONE"}
	}

	body, err := json.Marshal(generateRequest{Contents: contents, SafetySettings: settings})
	if err != nil {
		return Reply{}, fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, url.PathEscape(c.model), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return Reply{}, ErrUpstreamTimeout
		}
		c.log.Error().Err(err).Msg("gemini request failed")
		return Reply{}, &UpstreamError{
			Status:  http.StatusBadGateway,
			Message: "Network Error: Could not connect to Gemini API. Check your internet connection.",
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(ctx, err) {
			return Reply{}, ErrUpstreamTimeout
		}
		return Reply{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(raw, &e)
		c.log.Warn().
			Int("status", resp.StatusCode).
			Str("provider_status", e.Error.Status).
			Str("provider_message", e.Error.Message).
			Msg("gemini returned an error")
		return Reply{}, rewrite(resp.StatusCode, e.Error.Message)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Reply{}, fmt.Errorf("decode response: %w", err)
	}
	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return Reply{}, rewrite(http.StatusBadRequest, "prompt blocked: "+out.PromptFeedback.BlockReason)
	}

	var text strings.Builder
	if len(out.Candidates) > 0 {
		for _, p := range out.Candidates[0].Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return Reply{}, &UpstreamError{Status: http.StatusBadGateway, Message: failurePrefix + "Gemini API Error: empty response"}
	}

	return Reply{Text: text.String(), AIMood: "neutral"}, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
