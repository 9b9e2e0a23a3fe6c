package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/lshigami/quizcore/config"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
	"google.golang.org/api/option"
)

// Generator is the external natural-language service.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
	ModelVersion() string
}

var errEmptyResponse = errors.New("gemini returned no text content")

type geminiGenerator struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiGenerator returns a nil Generator when GEMINI_API_KEY is unset, which leaves
// the adapter on keyword scoring only.
func NewGeminiGenerator(lc fx.Lifecycle, cfg *config.Config) (Generator, error) {
	if cfg.Evaluator.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set. Free-text answers will be scored by keyword matching only.")
		return nil, nil
	}
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.Evaluator.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	model := client.GenerativeModel(cfg.Evaluator.GeminiModel)
	model.SetTemperature(0.2)
	model.ResponseMIMEType = "application/json"

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	log.Info().Str("model", cfg.Evaluator.GeminiModel).Msg("Gemini evaluator initialized")
	return &geminiGenerator{client: client, model: model, modelName: cfg.Evaluator.GeminiModel}, nil
}

func (g *geminiGenerator) ModelVersion() string {
	return g.modelName
}

func (g *geminiGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}
	if text.Len() == 0 {
		return "", errEmptyResponse
	}
	return text.String(), nil
}
