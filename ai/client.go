package ai

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/korjavin/exambot/models"
)

// Theory generation modes
const (
	TheoryConcise  = "concise"
	TheoryDidactic = "didactic"
)

// Completer produces a single assistant reply for a conversation
type Completer interface {
	Complete(ctx context.Context, model string, messages []models.ChatMessage) (string, error)
}

// Transcriber turns recorded speech into text
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Client is the scoring service adapter used by the bot. Every call is
// bounded by timeout; failures are returned as *ServiceError.
type Client struct {
	completer   Completer
	transcriber Transcriber
	timeout     time.Duration
}

// NewClient creates a Client
func NewClient(completer Completer, transcriber Transcriber, timeout time.Duration) *Client {
	return &Client{
		completer:   completer,
		transcriber: transcriber,
		timeout:     timeout,
	}
}

// Score asks the model to grade a candidate answer against the reference.
// The returned feedback is expected to contain "Оценка: NN%".
func (c *Client) Score(ctx context.Context, model, question, reference, answer string) (string, error) {
	return c.complete(ctx, "score", model, []models.ChatMessage{
		{Role: models.RoleUser, Content: scorePrompt(question, reference, answer)},
	})
}

// Theory asks the model for study notes on the question
func (c *Client) Theory(ctx context.Context, model, question, reference, mode string) (string, error) {
	return c.complete(ctx, "theory", model, []models.ChatMessage{
		{Role: models.RoleUser, Content: theoryPrompt(question, reference, mode)},
	})
}

// Chat continues a free-form conversation
func (c *Client) Chat(ctx context.Context, model string, history []models.ChatMessage) (string, error) {
	if len(history) == 0 {
		return "", &ServiceError{Kind: KindInvalid, Detail: "chat: empty history"}
	}
	return c.complete(ctx, "chat", model, history)
}

// Transcribe converts a voice message to text
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &ServiceError{Kind: KindInvalid, Detail: "transcribe: empty audio"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	text, err := c.transcriber.Transcribe(ctx, filename, audio)
	if err != nil {
		log.Printf("Transcription failed after %v: %v", time.Since(start), err)
		return "", wrap(ctx, "transcribe", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", &ServiceError{Kind: KindEmpty, Detail: "transcribe"}
	}
	log.Printf("Transcribed %d bytes of audio in %v", len(audio), time.Since(start))
	return text, nil
}

// CorrectTranscription fixes recognition errors. It is best effort: any
// failure returns the input unchanged.
func (c *Client) CorrectTranscription(ctx context.Context, model, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	fixed, err := c.complete(ctx, "correct", model, []models.ChatMessage{
		{Role: models.RoleUser, Content: correctionPrompt(text)},
	})
	if err != nil {
		log.Printf("Transcription correction skipped: %v", err)
		return text
	}
	return fixed
}

func (c *Client) complete(ctx context.Context, op, model string, messages []models.ChatMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	log.Printf("Sending %s request to model %s...", op, model)

	content, err := c.completer.Complete(ctx, model, messages)
	if err != nil {
		log.Printf("Error in %s request after %v: %v", op, time.Since(start), err)
		return "", wrap(ctx, op, err)
	}

	content = RemoveThinkBlocks(content)
	if content == "" {
		return "", &ServiceError{Kind: KindEmpty, Detail: op}
	}
	log.Printf("Received %s response in %v. Content length: %d", op, time.Since(start), len(content))
	return content, nil
}

func scorePrompt(question, reference, answer string) string {
	return fmt.Sprintf(
		"Вопрос: %s\n"+
			"Эталонный ответ (образец): %s\n"+
			"Ответ пользователя: %s\n\n"+
			"Оцени, насколько ответ пользователя совпадает с эталонным (от 0%% до 100%%). Не будь слишком строгим. "+
			"Кратко укажи, взяв из эталона, чего не хватает в ответе пользователя, а что хорошо.\n"+
			"Формат ответа:\nОценка: <проценты>%%\nРекомендация: <текст>",
		question, reference, answer)
}

func theoryPrompt(question, reference, mode string) string {
	if mode == TheoryConcise {
		return fmt.Sprintf(
			"Кратко и точно изложи теорию, необходимую для ответа на экзаменационный вопрос. "+
				"Опирайся на эталонный ответ, не добавляй лишнего.\n\n"+
				"Вопрос: %s\nЭталонный ответ: %s\n\n"+
				"Выводи строго на русском языке. Заголовок: 'Теория по теме'.",
			question, reference)
	}
	return fmt.Sprintf(
		"Ты — преподаватель информатики. На основе следующего экзаменационного вопроса и эталонного ответа "+
			"составь компактный, но полный конспект по теме для подготовки к экзамену. "+
			"Излагай структурировано с подзаголовками, списками и короткими примерами кода, где уместно.\n\n"+
			"Вопрос: %s\nЭталонный ответ: %s\n\n"+
			"Требования к структуре:\n"+
			"1) Краткое введение в тему (1–2 предложения)\n"+
			"2) Ключевые понятия и определения\n"+
			"3) Основные приёмы/синтаксис/формулы (по теме)\n"+
			"4) Короткие примеры (минимум 2)\n"+
			"5) Частые ошибки и как их избегать\n"+
			"6) Мини-чеклист перед экзаменом\n\n"+
			"Выводи строго на русском языке. Заголовок: 'Теория по теме'.",
		question, reference)
}

func correctionPrompt(text string) string {
	return "Исправь ошибки распознавания речи в тексте ниже. Сохрани смысл и формулировки, " +
		"не отвечай на вопрос и не добавляй комментариев. Верни только исправленный текст.\n\n" + text
}
