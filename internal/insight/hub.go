package insight

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

	"github.com/dvloznov/spend-insight/internal/domain"
)

// DefaultHubModel is the chat model requested from the hub.
const DefaultHubModel = "gpt-4o-mini"

// HubProvider asks an OpenAI-compatible chat completions endpoint (a LiteLLM
// style hub) for an Insight.
type HubProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
}

type hubMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type hubChatRequest struct {
	Model          string            `json:"model"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
	Messages       []hubMessage      `json:"messages"`
}

type hubChatResponse struct {
	Choices []struct {
		Message hubMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewHubProvider creates a hub client. timeout bounds each HTTP exchange.
func NewHubProvider(baseURL, apiKey, model string, temperature float64, timeout time.Duration) *HubProvider {
	if model == "" {
		model = DefaultHubModel
	}
	return &HubProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Insight implements Provider.
func (h *HubProvider) Insight(ctx context.Context, txs []CompactTx) (domain.Insight, error) {
	if h.baseURL == "" || strings.TrimSpace(h.apiKey) == "" {
		return domain.Insight{}, fmt.Errorf("%w: HUB_BASE_URL or HUB_API_KEY is missing", ErrRemoteUnavailable)
	}

	user, err := userPrompt(txs)
	if err != nil {
		return domain.Insight{}, err
	}

	payload, err := json.Marshal(hubChatRequest{
		Model:          h.model,
		Temperature:    h.temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
		Messages: []hubMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return domain.Insight{}, fmt.Errorf("HubProvider.Insight: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return domain.Insight{}, fmt.Errorf("HubProvider.Insight: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Hub keys that look like OpenAI keys go in Authorization, LiteLLM virtual keys in their own header.
	if strings.HasPrefix(h.apiKey, "sk-") {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	} else {
		req.Header.Set("x-litellm-api-key", h.apiKey)
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Insight{}, fmt.Errorf("upstream timeout: %w", err)
		}
		return domain.Insight{}, fmt.Errorf("HubProvider.Insight: send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Insight{}, fmt.Errorf("HubProvider.Insight: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr hubChatResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != nil {
			return domain.Insight{}, fmt.Errorf("hub status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return domain.Insight{}, fmt.Errorf("hub status %d: %s", resp.StatusCode, excerpt(body, 200))
	}

	var parsed hubChatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some hubs return the insight object itself instead of a chat completion.
		return decodeInsight(string(body))
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		if insight, err := decodeInsight(string(body)); err == nil && insight.Categories != nil {
			return insight, nil
		}
		return domain.Insight{}, fmt.Errorf("%w: hub response has no content", ErrInvalidInsight)
	}

	return decodeInsight(parsed.Choices[0].Message.Content)
}

func excerpt(body []byte, n int) string {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "empty body"
	}
	return truncateRunes(s, n)
}
