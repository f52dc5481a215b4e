package narrative

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/meteopl/internal/models"
)

// Narrator produces the paragraph shown above the statistics table.
type Narrator interface {
	Narrate(ctx context.Context, stats models.WeatherStats) (string, error)
}

// Plain joins the deterministic sentences.
type Plain struct{}

func (Plain) Narrate(_ context.Context, stats models.WeatherStats) (string, error) {
	return strings.Join(Describe(stats), " "), nil
}

const systemPrompt = `Jesteś synoptykiem. Przepisz podane zdania statystyczne na jeden zwięzły akapit po polsku.
Nie dodawaj liczb, których nie ma w danych, i nie pomijaj żadnej wartości.`

// OpenAI rewrites the deterministic sentences into prose with a chat model.
// Any API failure falls back to the deterministic text.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAI creates a narrator. Extra request options are appended after
// the API key, e.g. option.WithBaseURL.
func NewOpenAI(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key not set")
	}
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenAI{
		client: openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...),
		model:  model,
		logger: logger,
	}, nil
}

func (o *OpenAI) Narrate(ctx context.Context, stats models.WeatherStats) (string, error) {
	sentences := Describe(stats)
	plain := strings.Join(sentences, " ")
	if len(sentences) == 0 {
		return "", nil
	}

	text, err := o.complete(ctx, strings.Join(sentences, "\n"))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		o.logger.Warn("narrative rewrite failed, using plain text", "model", o.model, "error", err)
		return plain, nil
	}
	return text, nil
}

func (o *OpenAI) complete(ctx context.Context, input string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(input),
		},
		Model: openai.ChatModel(o.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}
