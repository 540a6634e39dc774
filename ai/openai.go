package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/korjavin/exambot/models"
)

// OpenAICompleter talks to any OpenAI-compatible chat endpoint (Groq by default)
type OpenAICompleter struct {
	llm *openai.LLM
}

// NewOpenAICompleter creates a completer for baseURL
func NewOpenAICompleter(apiKey, baseURL, defaultModel string) (*OpenAICompleter, error) {
	llm, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(baseURL),
		openai.WithModel(defaultModel),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	return &OpenAICompleter{llm: llm}, nil
}

func (o *OpenAICompleter) Complete(ctx context.Context, model string, messages []models.ChatMessage) (string, error) {
	history := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		msgType := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleAssistant {
			msgType = llms.ChatMessageTypeAI
		}
		history = append(history, llms.TextParts(msgType, msg.Content))
	}

	var opts []llms.CallOption
	if model != "" {
		opts = append(opts, llms.WithModel(model))
	}

	resp, err := o.llm.GenerateContent(ctx, history, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", &ServiceError{Kind: KindEmpty, Detail: "no choices in API response"}
	}
	return resp.Choices[0].Content, nil
}
