package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/exambot/exam"
	"github.com/korjavin/exambot/models"
	"github.com/korjavin/exambot/profiles"
)

// handleVoice transcribes the message and feeds it to the exam flow. Outside
// an answer step the transcript is echoed and kept in the conversation.
func (b *Bot) handleVoice(ctx context.Context, ev exam.Event, voice *tgbotapi.Voice) {
	if err := b.profiles.Increment(ctx, ev.UserID, profiles.VoiceRequest); err != nil {
		log.Printf("Error saving user stats: %v", err)
	}

	audio, err := b.downloadFile(ctx, voice.FileID)
	if err != nil {
		log.Printf("Error downloading voice message: %v", err)
		b.reply(ev, "❌ Ошибка при обработке голосового сообщения: не удалось загрузить файл", exam.MenuKeep)
		return
	}

	text, err := b.ai.Transcribe(ctx, fmt.Sprintf("%d_audio.ogg", ev.ChatID), audio)
	if err != nil {
		log.Printf("Error transcribing voice message: %v", err)
		b.reply(ev, "❌ Ошибка при обработке голосового сообщения: "+userMessage(err), exam.MenuKeep)
		return
	}
	text = b.ai.CorrectTranscription(ctx, b.profiles.Model(ev.UserID), text)

	ev.Origin = exam.OriginVoice
	ev.Text = text
	if b.engine.HandleInput(ctx, ev) {
		return
	}

	b.reply(ev, "🎤 Расшифровка: "+text, exam.MenuKeep)
	msg := models.ChatMessage{Role: models.RoleUser, Content: "[Голосовое сообщение]: " + text}
	if err := b.dialog.Append(ctx, ev.UserID, msg); err != nil {
		log.Printf("Error saving user messages: %v", err)
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxVoiceSize))
}
