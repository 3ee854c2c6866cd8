package insight

import (
	"context"
	"fmt"

	"github.com/dvloznov/spend-insight/internal/domain"
	"google.golang.org/genai"
)

// DefaultGeminiModel is the Gemini model used for remote insight.
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiProvider asks Gemini for an Insight.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
}

// NewGeminiProvider creates a Gemini client. With an empty apiKey the client
// falls back to the GOOGLE_API_KEY / Vertex AI environment configuration.
func NewGeminiProvider(ctx context.Context, apiKey, model string, temperature float32) (*GeminiProvider, error) {
	cfg := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if apiKey != "" {
		cfg.APIKey = apiKey
		cfg.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiProvider: create genai client: %w", err)
	}

	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model, temperature: temperature}, nil
}

// Insight implements Provider.
func (g *GeminiProvider) Insight(ctx context.Context, txs []CompactTx) (domain.Insight, error) {
	user, err := userPrompt(txs)
	if err != nil {
		return domain.Insight{}, err
	}

	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: systemPrompt},
				{Text: user},
			},
		},
	}

	temperature := g.temperature
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature: &temperature,
	})
	if err != nil {
		return domain.Insight{}, fmt.Errorf("GeminiProvider.Insight: generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return domain.Insight{}, fmt.Errorf("%w: empty response from model", ErrInvalidInsight)
	}
	return decodeInsight(raw)
}
