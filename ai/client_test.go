package ai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/korjavin/exambot/models"
)

type fakeCompleter struct {
	reply string
	err   error
	delay time.Duration
	got   []models.ChatMessage
	model string
}

func (f *fakeCompleter) Complete(ctx context.Context, model string, messages []models.ChatMessage) (string, error) {
	f.got = messages
	f.model = model
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func TestScore(t *testing.T) {
	fc := &fakeCompleter{reply: "<think>hmm</think>Оценка: 60%\nРекомендация: больше примеров"}
	c := NewClient(fc, nil, time.Second)

	got, err := c.Score(context.Background(), "m1", "Что такое GIL?", "Глобальная блокировка", "Блокировка")
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if got != "Оценка: 60%\nРекомендация: больше примеров" {
		t.Errorf("Score() = %q", got)
	}
	if fc.model != "m1" {
		t.Errorf("model = %q, want m1", fc.model)
	}
	prompt := fc.got[0].Content
	for _, part := range []string{"Что такое GIL?", "Глобальная блокировка", "Ответ пользователя: Блокировка", "Оценка: <проценты>%"} {
		if !strings.Contains(prompt, part) {
			t.Errorf("prompt missing %q", part)
		}
	}
}

func TestCompleteErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		fc   *fakeCompleter
		want Kind
	}{
		{name: "timeout", fc: &fakeCompleter{reply: "late", delay: time.Second}, want: KindTimeout},
		{name: "network", fc: &fakeCompleter{err: errors.New("connection refused")}, want: KindUnavailable},
		{name: "empty", fc: &fakeCompleter{reply: "<think>only thoughts</think>"}, want: KindEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.fc, nil, 20*time.Millisecond)
			_, err := c.Score(context.Background(), "m", "q", "r", "a")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := KindOf(err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q (err: %v)", got, tt.want, err)
			}
			var se *ServiceError
			if !errors.As(err, &se) || se.UserMessage() == "" {
				t.Error("expected a ServiceError with a user message")
			}
		})
	}
}

func TestTheoryModes(t *testing.T) {
	fc := &fakeCompleter{reply: "Теория по теме"}
	c := NewClient(fc, nil, time.Second)

	if _, err := c.Theory(context.Background(), "m", "q", "r", TheoryDidactic); err != nil {
		t.Fatal(err)
	}
	didactic := fc.got[0].Content
	if _, err := c.Theory(context.Background(), "m", "q", "r", TheoryConcise); err != nil {
		t.Fatal(err)
	}
	concise := fc.got[0].Content

	if !strings.Contains(didactic, "Мини-чеклист") || strings.Contains(concise, "Мини-чеклист") {
		t.Error("theory modes should produce different prompts")
	}
}

func TestCorrectTranscriptionFallsBack(t *testing.T) {
	c := NewClient(&fakeCompleter{err: errors.New("boom")}, nil, time.Second)
	if got := c.CorrectTranscription(context.Background(), "m", "пайтон это язык"); got != "пайтон это язык" {
		t.Errorf("CorrectTranscription() = %q, want original", got)
	}

	c = NewClient(&fakeCompleter{reply: "Python это язык"}, nil, time.Second)
	if got := c.CorrectTranscription(context.Background(), "m", "пайтон это язык"); got != "Python это язык" {
		t.Errorf("CorrectTranscription() = %q", got)
	}
}

func TestChatRejectsEmptyHistory(t *testing.T) {
	c := NewClient(&fakeCompleter{reply: "x"}, nil, time.Second)
	if _, err := c.Chat(context.Background(), "m", nil); KindOf(err) != KindInvalid {
		t.Errorf("Chat(nil) err = %v, want invalid input", err)
	}
}

func TestWhisperTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.FormValue("model") != "whisper-large-v3-turbo" || r.FormValue("language") != "ru" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "OggS" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Write([]byte(`{"text": "  привет  "}`))
	}))
	defer srv.Close()

	c := NewClient(nil, NewWhisperClient("secret", srv.URL+"/", "whisper-large-v3-turbo", "ru"), time.Second)
	got, err := c.Transcribe(context.Background(), "voice.ogg", []byte("OggS"))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "привет" {
		t.Errorf("Transcribe() = %q", got)
	}

	bad := NewClient(nil, NewWhisperClient("wrong", srv.URL, "whisper-large-v3-turbo", "ru"), time.Second)
	if _, err := bad.Transcribe(context.Background(), "voice.ogg", []byte("OggS")); KindOf(err) != KindUnavailable {
		t.Errorf("Transcribe() with bad key err = %v", err)
	}
}
