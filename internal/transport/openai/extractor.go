package openai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sidepot-cloud/handex/internal/domain"
)

// extractionPrompt instructs the model to emit one JSON object matching the
// hand.Record field layout. Streets that did not occur must be omitted.
const extractionPrompt = `You are a poker hand history extractor. The user ` +
	`message is a spoken-word transcript of one played no-limit hold'em hand. ` +
	`Extract it into a single JSON object with these keys: id, game_location, ` +
	`stakes, caller_cards, preflop_action, preflop_commentary, and, only for ` +
	`streets that were actually played: flop_cards, flop_action, ` +
	`flop_commentary, turn_card, turn_action, turn_commentary, river_card, ` +
	`river_action, river_commentary. Write cards in words, e.g. "Ace of ` +
	`Clubs and Ace of Spades", hole cards lower rank first. Keep action ` +
	`fields factual (bets, sizes, positions) and commentary fields for the ` +
	`speaker's reasoning. Leave id as an empty string. Respond with JSON only.`

// Extractor turns raw hand transcripts into structured records through a
// chat-completion model.
type Extractor struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewExtractor creates a transcript extractor against an OpenAI-compatible API.
func NewExtractor(apiKey, baseURL, model string, logger *zap.Logger) *Extractor {
	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientCfg.BaseURL = baseURL
	}

	return &Extractor{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: logger,
	}
}

// Analyze sends the transcript for extraction and returns the raw JSON
// object emitted by the model. Decoding and validation are the caller's job.
func (e *Extractor) Analyze(ctx context.Context, transcript string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, domain.ErrExtractionFailed)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty extraction response: %w", domain.ErrExtractionFailed)
	}

	e.logger.Debug("Transcript analyzed",
		zap.String("model", e.model),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return resp.Choices[0].Message.Content, nil
}
