package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"go.uber.org/zap"
)

const defaultModel = "command-r"

// CohereGenerator implements Generator using the Cohere Chat API.
// SDK: github.com/cohere-ai/cohere-go/v2
type CohereGenerator struct {
	client  *cohereclient.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

var _ Generator = (*CohereGenerator)(nil)

// NewCohereGenerator returns a generator for apiKey; an empty model selects command-r.
func NewCohereGenerator(apiKey, model string, log *zap.Logger) (*CohereGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("缺少 COHERE_API_KEY")
	}
	if model == "" {
		model = defaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	)
	return &CohereGenerator{client: client, model: model, timeout: 60 * time.Second, log: log}, nil
}

// Generate implements Generator.
func (g *CohereGenerator) Generate(ctx context.Context, in Input) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Chat(ctx, &cohere.ChatRequest{
		Message: Prompt(in),
		Model:   cohere.String(g.model),
	})
	if err != nil {
		return Metadata{}, fmt.Errorf("cohere chat error: %w", err)
	}
	if resp == nil || resp.Text == "" {
		return Metadata{}, ErrEmptyResponse
	}
	g.log.Debug("metadata generated", zap.String("model", g.model), zap.String("ayah", in.Ayah))
	return Parse(resp.Text)
}
