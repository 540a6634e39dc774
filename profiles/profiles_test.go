package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/models"
)

func newService(allowOverride bool) *Service {
	col := database.NewCollection[models.Profile](database.NewMemoryStore(), database.Profiles)
	return NewService(col, "default-model", allowOverride)
}

func TestTouchCreatesOnce(t *testing.T) {
	ctx := context.Background()
	s := newService(false)

	if err := s.Touch(ctx, "1", "alice"); err != nil {
		t.Fatal(err)
	}
	if err := s.Increment(ctx, "1", TextRequest); err != nil {
		t.Fatal(err)
	}
	if err := s.Touch(ctx, "1", "renamed"); err != nil {
		t.Fatal(err)
	}

	p, ok := s.Get("1")
	if !ok {
		t.Fatal("profile not created")
	}
	if p.UserName != "alice" || p.TextRequests != 1 || p.Model != "" {
		t.Errorf("profile = %+v", p)
	}
}

func TestIncrementCounters(t *testing.T) {
	ctx := context.Background()
	s := newService(false)

	for _, c := range []Counter{TextRequest, VoiceRequest, VoiceRequest, ExamAnswer, ExamAnswer, ExamAnswer} {
		if err := s.Increment(ctx, "1", c); err != nil {
			t.Fatal(err)
		}
	}
	p, _ := s.Get("1")
	if p.TextRequests != 1 || p.VoiceRequests != 2 || p.ExamAnswered != 3 {
		t.Errorf("profile = %+v", p)
	}
}

func TestModelResolution(t *testing.T) {
	ctx := context.Background()

	locked := newService(false)
	if err := locked.SetModel(ctx, "1", "custom"); !errors.Is(err, ErrOverrideDisabled) {
		t.Errorf("SetModel() err = %v, want ErrOverrideDisabled", err)
	}
	if got := locked.Model("1"); got != "default-model" {
		t.Errorf("Model() = %q", got)
	}

	open := newService(true)
	if got := open.Model("1"); got != "default-model" {
		t.Errorf("Model() without profile = %q", got)
	}
	if err := open.SetModel(ctx, "1", " custom "); err != nil {
		t.Fatal(err)
	}
	if got := open.Model("1"); got != "custom" {
		t.Errorf("Model() = %q, want custom", got)
	}
	if err := open.SetModel(ctx, "1", ""); err != nil {
		t.Fatal(err)
	}
	if got := open.Model("1"); got != "default-model" {
		t.Errorf("Model() after reset = %q", got)
	}
}

func TestDefaultModelChangeReachesExistingProfiles(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()

	before := NewService(database.NewCollection[models.Profile](store, database.Profiles), "model-a", true)
	if err := before.Touch(ctx, "1", "alice"); err != nil {
		t.Fatal(err)
	}

	col := database.NewCollection[models.Profile](store, database.Profiles)
	if err := col.Load(ctx); err != nil {
		t.Fatal(err)
	}
	after := NewService(col, "model-b", true)
	if got := after.Model("1"); got != "model-b" {
		t.Errorf("Model() = %q, want the new default model-b", got)
	}
}
