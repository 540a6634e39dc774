package exam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/korjavin/exambot/ai"
	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/models"
	"github.com/korjavin/exambot/profiles"
)

// Banks gives access to topics and their question banks
type Banks interface {
	Topics() []models.Topic
	Topic(key string) (models.Topic, bool)
	Find(text string) (models.Topic, bool)
	Load(key string) models.Bank
}

// Scorer is the external scoring service
type Scorer interface {
	Score(ctx context.Context, model, question, reference, answer string) (string, error)
	Theory(ctx context.Context, model, question, reference, mode string) (string, error)
}

// Recorder stores scored answers
type Recorder interface {
	Record(ctx context.Context, userID, topic, question string, score int) error
}

// Picker chooses questions from a bank
type Picker interface {
	Select(userID, topic string, bank models.Bank) string
	Random(bank models.Bank) string
}

// Profiles tracks counters and resolves the model per user
type Profiles interface {
	Increment(ctx context.Context, userID string, c profiles.Counter) error
	Model(userID string) string
}

// Deps bundles the collaborators of an Engine
type Deps struct {
	Sessions   *database.Collection[models.Session]
	Banks      Banks
	Scorer     Scorer
	Recorder   Recorder
	Picker     Picker
	Profiles   Profiles
	Sender     Sender
	TheoryMode string
}

// Engine drives the per-user exam flow:
// no session → awaiting topic → awaiting answer → awaiting action → ...
// Every handler except Cancel runs under a per-user lock.
type Engine struct {
	sessions   *database.Collection[models.Session]
	banks      Banks
	scorer     Scorer
	recorder   Recorder
	picker     Picker
	profiles   Profiles
	sender     Sender
	theoryMode string

	locks *userLocks
	now   func() time.Time
	newID func() string
}

// New creates an Engine
func New(d Deps) *Engine {
	mode := d.TheoryMode
	if mode == "" {
		mode = ai.TheoryDidactic
	}
	return &Engine{
		sessions:   d.Sessions,
		banks:      d.Banks,
		scorer:     d.Scorer,
		recorder:   d.Recorder,
		picker:     d.Picker,
		profiles:   d.Profiles,
		sender:     d.Sender,
		theoryMode: mode,
		locks:      newUserLocks(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Status returns the user's active session
func (e *Engine) Status(userID string) (models.Session, bool) {
	return e.sessions.Get(userID)
}

// StartExam offers the topic choice. A session waiting for an answer is
// kept, and its question is shown again.
func (e *Engine) StartExam(ctx context.Context, ev Event) {
	defer e.locks.lock(ev.UserID)()

	if s, ok := e.sessions.Get(ev.UserID); ok && s.State == models.StateAwaitingAnswer {
		e.reply(ev, fmt.Sprintf(
			"❗ У вас есть незавершенный экзамен!\n\nТема: %s\nВопрос: %s\n\n"+
				"💬 Введите ваш ответ или используйте /cancel_exam для отмены:",
			e.displayName(s.Topic), s.Question), MenuHidden)
		return
	}

	s := models.Session{
		ID:        e.newID(),
		State:     models.StateAwaitingTopic,
		StartedAt: e.now().Unix(),
	}
	e.save(ctx, ev.UserID, s)
	log.Printf("User %s started topic selection (session %s)", ev.UserID, s.ID)

	var sb strings.Builder
	sb.WriteString("🎯 Выберите тему для экзамена:\n\n")
	for _, t := range e.banks.Topics() {
		fmt.Fprintf(&sb, "• %s (%d вопросов)\n", t.DisplayName, len(e.banks.Load(t.Key)))
	}
	e.send(ev, Reply{Text: sb.String(), Menu: MenuTopics, Markdown: true})
}

// Cancel removes the session unconditionally. It does not wait for an
// in-flight scoring call; that call's result is discarded.
func (e *Engine) Cancel(ctx context.Context, ev Event) {
	removed, err := e.sessions.Delete(ctx, ev.UserID)
	if err != nil {
		log.Printf("Error persisting exam states after cancel: %v", err)
	}
	if !removed {
		e.reply(ev, "❌ У вас нет активного экзамена.", MenuMain)
		return
	}
	log.Printf("User %s cancelled the exam", ev.UserID)
	e.reply(ev, "❌ Экзамен отменен!", MenuMain)
}

// HandleInput routes a text or voice event by the user's session state.
// It returns false when the event is not part of the exam flow.
func (e *Engine) HandleInput(ctx context.Context, ev Event) bool {
	defer e.locks.lock(ev.UserID)()

	s, ok := e.sessions.Get(ev.UserID)
	if !ok {
		return false
	}
	text := strings.TrimSpace(ev.Text)

	switch s.State {
	case models.StateAwaitingTopic:
		if ev.Origin == OriginVoice {
			return false
		}
		e.chooseTopic(ctx, ev, s, text)
		return true

	case models.StateAwaitingAnswer:
		if ev.Origin == OriginText && isMainMenuButton(text) {
			return false
		}
		e.answer(ctx, ev, s, text)
		return true

	case models.StateAwaitingAction:
		if ev.Origin == OriginVoice {
			return false
		}
		switch text {
		case ButtonTheory:
			e.theory(ctx, ev, s)
		case ButtonNext:
			e.nextQuestion(ctx, ev, s)
		case ButtonEnd:
			e.end(ctx, ev, s)
		default:
			return false
		}
		return true
	}

	log.Printf("Unknown exam state %q for user %s, dropping session", s.State, ev.UserID)
	if _, err := e.sessions.Delete(ctx, ev.UserID); err != nil {
		log.Printf("Error persisting exam states: %v", err)
	}
	return false
}

func (e *Engine) chooseTopic(ctx context.Context, ev Event, s models.Session, text string) {
	if text == ButtonBack {
		e.remove(ctx, ev.UserID, s.ID)
		e.reply(ev, "↩️ Возврат в главное меню", MenuMain)
		return
	}

	topic, ok := e.banks.Find(text)
	if !ok {
		e.reply(ev, "❌ Неверный выбор. Пожалуйста, выберите тему из предложенных:", MenuTopics)
		return
	}

	bank := e.banks.Load(topic.Key)
	if len(bank) == 0 {
		e.reply(ev, fmt.Sprintf("❌ Ошибка: База вопросов для темы '%s' пуста или не найдена.", topic.DisplayName), MenuTopics)
		return
	}

	question := e.picker.Random(bank)
	s.State = models.StateAwaitingAnswer
	s.Topic = topic.Key
	s.Question = question
	s.Answer = bank[question]
	s.StartedAt = e.now().Unix()
	if !e.saveCurrent(ctx, ev.UserID, s) {
		return
	}
	log.Printf("User %s started exam on topic %q", ev.UserID, topic.Key)

	e.reply(ev, fmt.Sprintf("🎯 Экзамен начат!\n\nТема: %s\nВопрос:\n%s\n\n💬 Введите ваш ответ:",
		topic.DisplayName, question), MenuHidden)
}

func (e *Engine) answer(ctx context.Context, ev Event, s models.Session, text string) {
	if err := e.profiles.Increment(ctx, ev.UserID, profiles.ExamAnswer); err != nil {
		log.Printf("Error saving user stats: %v", err)
	}

	// The answer step completes regardless of how scoring goes.
	s.State = models.StateAwaitingAction
	if !e.saveCurrent(ctx, ev.UserID, s) {
		return
	}

	feedback, err := e.scorer.Score(ctx, e.profiles.Model(ev.UserID), s.Question, s.Answer, text)
	if !e.sameSession(ev.UserID, s.ID) {
		log.Printf("Session %s of user %s ended while scoring, result discarded", s.ID, ev.UserID)
		return
	}
	if err != nil {
		log.Printf("Error scoring answer for user %s: %v", ev.UserID, err)
		e.reply(ev, "❌ Ошибка при оценке ответа: "+userMessage(err), MenuExam)
		return
	}

	if score, ok := ai.ParseScore(feedback); ok {
		if err := e.recorder.Record(ctx, ev.UserID, s.Topic, s.Question, score); err != nil {
			log.Printf("Error saving score for user %s: %v", ev.UserID, err)
		} else {
			log.Printf("Saved score %d for user %s, question: %s", score, ev.UserID, preview(s.Question, 50))
		}
	} else {
		log.Printf("Failed to parse score from AI response: %s", preview(feedback, 100))
	}

	e.send(ev, Reply{Text: "📝 Результат:\n\n" + feedback, Menu: MenuExam, Markdown: true})
}

func (e *Engine) theory(ctx context.Context, ev Event, s models.Session) {
	e.reply(ev, "🤔 Думаю над теорией...", MenuKeep)

	theory, err := e.scorer.Theory(ctx, e.profiles.Model(ev.UserID), s.Question, s.Answer, e.theoryMode)
	if !e.sameSession(ev.UserID, s.ID) {
		log.Printf("Session %s of user %s ended while generating theory, result discarded", s.ID, ev.UserID)
		return
	}
	if err != nil {
		log.Printf("Error generating theory for user %s: %v", ev.UserID, err)
		e.reply(ev, "❌ Ошибка при формировании теории: "+userMessage(err), MenuExam)
		return
	}
	e.send(ev, Reply{Text: theory, Menu: MenuExam, Markdown: true})
}

func (e *Engine) nextQuestion(ctx context.Context, ev Event, s models.Session) {
	bank := e.banks.Load(s.Topic)
	if len(bank) == 0 {
		e.reply(ev, "❌ Ошибка: Нет доступных вопросов.", MenuExam)
		return
	}

	question := e.picker.Select(ev.UserID, s.Topic, bank)
	s.State = models.StateAwaitingAnswer
	s.Question = question
	s.Answer = bank[question]
	if !e.saveCurrent(ctx, ev.UserID, s) {
		return
	}

	e.reply(ev, fmt.Sprintf("📋 Следующий вопрос (%s):\n\n%s\n\n💬 Введите ваш ответ:",
		e.displayName(s.Topic), question), MenuHidden)
}

func (e *Engine) end(ctx context.Context, ev Event, s models.Session) {
	e.remove(ctx, ev.UserID, s.ID)
	log.Printf("User %s finished the exam", ev.UserID)
	e.reply(ev, "✅ Экзамен завершён!\n\nВы можете начать новый экзамен или использовать другие функции бота.", MenuMain)
}

func (e *Engine) sameSession(userID, id string) bool {
	current, ok := e.sessions.Get(userID)
	return ok && current.ID == id
}

// save persists a new session. A failed write keeps the in-memory copy.
func (e *Engine) save(ctx context.Context, userID string, s models.Session) {
	if err := e.sessions.Put(ctx, userID, s); err != nil {
		log.Printf("Error saving exam state for user %s: %v", userID, err)
	}
}

// saveCurrent writes s only while it is still the user's session. It
// returns false when the session was cancelled or replaced meanwhile.
func (e *Engine) saveCurrent(ctx context.Context, userID string, s models.Session) bool {
	stored, err := e.sessions.PutIf(ctx, userID, s, func(cur models.Session, ok bool) bool {
		return ok && cur.ID == s.ID
	})
	if err != nil {
		log.Printf("Error saving exam state for user %s: %v", userID, err)
	}
	if !stored {
		log.Printf("Session %s of user %s ended before it was saved, input discarded", s.ID, userID)
	}
	return stored
}

// remove deletes the session if it is still the one with id
func (e *Engine) remove(ctx context.Context, userID, id string) {
	_, err := e.sessions.DeleteIf(ctx, userID, func(cur models.Session) bool { return cur.ID == id })
	if err != nil {
		log.Printf("Error persisting exam states: %v", err)
	}
}

func (e *Engine) displayName(key string) string {
	if t, ok := e.banks.Topic(key); ok {
		return t.DisplayName
	}
	return key
}

func (e *Engine) reply(ev Event, text string, menu Menu) {
	e.send(ev, Reply{Text: text, Menu: menu})
}

func (e *Engine) send(ev Event, r Reply) {
	e.sender.Send(ev.ChatID, r)
}

func userMessage(err error) string {
	var se *ai.ServiceError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return "сервис временно недоступен"
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
