package ai

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/korjavin/exambot/models"
)

const anthropicMaxTokens = 4096

// AnthropicCompleter uses the Anthropic Messages API
type AnthropicCompleter struct {
	client       *anthropic.Client
	defaultModel string
}

// NewAnthropicCompleter creates a completer with the given API key
func NewAnthropicCompleter(apiKey, defaultModel string) *AnthropicCompleter {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCompleter{client: &client, defaultModel: defaultModel}
}

func (a *AnthropicCompleter) Complete(ctx context.Context, model string, messages []models.ChatMessage) (string, error) {
	if model == "" {
		model = a.defaultModel
	}

	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == models.RoleAssistant {
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
			continue
		}
		params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
	}

	response, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: anthropicMaxTokens,
		Messages:  params,
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range response.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	return sb.String(), nil
}
