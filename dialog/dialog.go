package dialog

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/lo"

	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/models"
)

// MaxContextLength bounds the total characters of a stored conversation
const MaxContextLength = 3000

// Chatter continues a conversation
type Chatter interface {
	Chat(ctx context.Context, model string, history []models.ChatMessage) (string, error)
}

// Service keeps per-user conversation history for free-form questions
type Service struct {
	messages *database.Collection[[]models.ChatMessage]
	chatter  Chatter
}

// NewService creates a dialog service
func NewService(messages *database.Collection[[]models.ChatMessage], chatter Chatter) *Service {
	return &Service{messages: messages, chatter: chatter}
}

// Trim drops the oldest messages until the total length fits the budget
func Trim(history []models.ChatMessage) []models.ChatMessage {
	length := lo.SumBy(history, func(m models.ChatMessage) int { return len([]rune(m.Content)) })
	for len(history) > 0 && length > MaxContextLength {
		length -= len([]rune(history[0].Content))
		history = history[1:]
	}
	return history
}

// Ask appends the question to the user's history, asks the model and stores
// the answer. On failure the question stays in the history.
func (s *Service) Ask(ctx context.Context, userID, model, text string) (string, error) {
	var window []models.ChatMessage
	err := s.messages.Update(ctx, userID, func(h *[]models.ChatMessage) bool {
		*h = Trim(append(*h, models.ChatMessage{Role: models.RoleUser, Content: text}))
		window = append([]models.ChatMessage(nil), *h...)
		return true
	})
	if err != nil {
		log.Printf("Error saving user messages: %v", err)
	}

	if len(window) == 0 {
		return "", fmt.Errorf("message of %d characters does not fit the context", len([]rune(text)))
	}

	reply, err := s.chatter.Chat(ctx, model, window)
	if err != nil {
		return "", err
	}

	if err := s.Append(ctx, userID, models.ChatMessage{Role: models.RoleAssistant, Content: reply}); err != nil {
		log.Printf("Error saving user messages: %v", err)
	}
	return reply, nil
}

// Append adds a message to the history without asking the model
func (s *Service) Append(ctx context.Context, userID string, msg models.ChatMessage) error {
	return s.messages.Update(ctx, userID, func(h *[]models.ChatMessage) bool {
		*h = Trim(append(*h, msg))
		return true
	})
}

// Clear empties the user's history
func (s *Service) Clear(ctx context.Context, userID string) error {
	return s.messages.Put(ctx, userID, []models.ChatMessage{})
}

// History returns a copy of the user's history
func (s *Service) History(userID string) []models.ChatMessage {
	var out []models.ChatMessage
	s.messages.View(userID, func(h []models.ChatMessage, _ bool) {
		out = append(out, h...)
	})
	return out
}
