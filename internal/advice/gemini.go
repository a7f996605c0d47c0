package advice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"smartspend/internal/analytics"
	"smartspend/internal/cache"
	"smartspend/internal/core"
)

const geminiEndpoint = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

// Client answers advice questions through the Gemini API. Without an API key,
// or when the upstream call fails, it degrades to the deterministic fallback
// so the chat surface never errors out.
type Client struct {
	apiKey string
	model  string
	httpc  *http.Client
	cache  *cache.LRUCache[string]
	clock  func() time.Time
}

func NewClient(apiKey, model string, cacheTTL time.Duration) *Client {
	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		model:  model,
		httpc:  &http.Client{Timeout: 30 * time.Second},
		cache:  cache.NewLRUCache[string](128, cacheTTL),
		clock:  time.Now,
	}
}

// Cache exposes the response cache for expiry sweeps.
func (c *Client) Cache() *cache.LRUCache[string] { return c.cache }

// Chat answers one user message against the given expense set. Identical
// questions over an unchanged ledger are served from cache.
func (c *Client) Chat(ctx context.Context, message string, history []ChatMessage, set []core.Expense) string {
	summary := analytics.Summarize(set, c.clock())

	key := cacheKey(message, history, summary)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	if c.apiKey == "" {
		answer := Fallback(message, summary)
		c.cache.Set(key, answer)
		return answer
	}

	answer, err := c.generate(ctx, message, history, summary, spanDays(set))
	if err != nil {
		slog.WarnContext(ctx, "Advice upstream failed, using fallback", "error", err)
		answer = Fallback(message, summary)
	}
	c.cache.Set(key, answer)
	return answer
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) generate(ctx context.Context, message string, history []ChatMessage, summary analytics.Summary, span int) (string, error) {
	contents := []geminiContent{
		{Role: "user", Parts: []geminiPart{{Text: spendingContext(summary, span)}}},
		{Role: "model", Parts: []geminiPart{{Text: "I understand. I'm ready to help you with your financial questions."}}},
	}

	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	for _, msg := range recent {
		role := "model"
		if msg.Role == RoleUser {
			role = "user"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}
	contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: message}}})

	body, err := json.Marshal(geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     0.8,
			TopK:            40,
			TopP:            0.95,
			MaxOutputTokens: 1024,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf(geminiEndpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error.Message != "" {
			return "", fmt.Errorf("gemini API: %s", parsed.Error.Message)
		}
		return "", fmt.Errorf("gemini API: status %d", resp.StatusCode)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from gemini API")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// cacheKey fingerprints the question, recent history and the ledger state the
// answer was computed from.
func cacheKey(message string, history []ChatMessage, summary analytics.Summary) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(message)))
	fmt.Fprintf(&b, "|%d|%d", summary.Total.Cents, summary.Count)
	recent := history
	if len(recent) > historyWindow {
		recent = recent[len(recent)-historyWindow:]
	}
	for _, msg := range recent {
		fmt.Fprintf(&b, "|%s:%d", msg.Role, len(msg.Content))
	}
	return b.String()
}
