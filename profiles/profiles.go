package profiles

import (
	"context"
	"errors"
	"strings"

	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/models"
)

// ErrOverrideDisabled is returned by SetModel when users may not pick models
var ErrOverrideDisabled = errors.New("model override is disabled")

// Counter selects which profile counter to increment
type Counter int

const (
	TextRequest Counter = iota
	VoiceRequest
	ExamAnswer
)

// Service manages user profiles and resolves the model used per request
type Service struct {
	profiles      *database.Collection[models.Profile]
	defaultModel  string
	allowOverride bool
}

// NewService creates a profile service
func NewService(profiles *database.Collection[models.Profile], defaultModel string, allowOverride bool) *Service {
	return &Service{
		profiles:      profiles,
		defaultModel:  defaultModel,
		allowOverride: allowOverride,
	}
}

// Touch creates the profile on first interaction. The model is left empty
// so the configured default applies until the user picks one.
func (s *Service) Touch(ctx context.Context, userID, userName string) error {
	return s.profiles.Update(ctx, userID, func(p *models.Profile) bool {
		if p.UserName != "" {
			return false
		}
		p.UserName = userName
		if p.UserName == "" {
			p.UserName = "Unknown"
		}
		return true
	})
}

// Increment bumps one counter and persists the profiles
func (s *Service) Increment(ctx context.Context, userID string, c Counter) error {
	return s.profiles.Update(ctx, userID, func(p *models.Profile) bool {
		switch c {
		case TextRequest:
			p.TextRequests++
		case VoiceRequest:
			p.VoiceRequests++
		case ExamAnswer:
			p.ExamAnswered++
		default:
			return false
		}
		return true
	})
}

// Get returns the profile of a user
func (s *Service) Get(userID string) (models.Profile, bool) {
	return s.profiles.Get(userID)
}

// Model returns the model for the user's next request
func (s *Service) Model(userID string) string {
	if !s.allowOverride {
		return s.defaultModel
	}
	if p, ok := s.profiles.Get(userID); ok && p.Model != "" {
		return p.Model
	}
	return s.defaultModel
}

// OverrideAllowed reports whether users may choose their own model
func (s *Service) OverrideAllowed() bool {
	return s.allowOverride
}

// SetModel stores the user's preferred model. An empty name goes back to
// the configured default.
func (s *Service) SetModel(ctx context.Context, userID, model string) error {
	if !s.allowOverride {
		return ErrOverrideDisabled
	}
	model = strings.TrimSpace(model)
	return s.profiles.Update(ctx, userID, func(p *models.Profile) bool {
		p.Model = model
		return true
	})
}
