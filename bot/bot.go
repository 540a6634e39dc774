package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/korjavin/exambot/ai"
	"github.com/korjavin/exambot/config"
	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/dialog"
	"github.com/korjavin/exambot/exam"
	"github.com/korjavin/exambot/history"
	"github.com/korjavin/exambot/models"
	"github.com/korjavin/exambot/profiles"
	"github.com/korjavin/exambot/questions"
)

// Bot represents the Telegram bot
type Bot struct {
	api      *tgbotapi.BotAPI
	store    database.Store
	sender   *sender
	engine   *exam.Engine
	dialog   *dialog.Service
	profiles *profiles.Service
	ai       *ai.Client
	http     *http.Client

	reconnectDelay time.Duration
}

const (
	cmdStart      = "start"
	cmdHelp       = "help"
	cmdExam       = "exam"
	cmdSettings   = "settings"
	cmdClear      = "clear"
	cmdCancelExam = "cancel_exam"
	cmdModel      = "model"

	// maxVoiceSize caps downloaded voice messages
	maxVoiceSize = 20 << 20
)

// New creates a new bot instance
func New(ctx context.Context, cfg *config.Config) (*Bot, error) {
	botAPI, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := database.Open(ctx, cfg.DatabaseDriver, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	completer, err := newCompleter(cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	b, err := assemble(ctx, botAPI, cfg, store, completer)
	if err != nil {
		store.Close()
		return nil, err
	}
	return b, nil
}

// connect creates the Bot API client, retrying until ctx is done
func connect(ctx context.Context, cfg *config.Config) (*tgbotapi.BotAPI, error) {
	delay := max(cfg.ReconnectDelay, time.Second)
	for {
		botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
		if err == nil {
			botAPI.Debug = cfg.Debug
			log.Printf("Authorized on account %s", botAPI.Self.UserName)
			return botAPI, nil
		}
		log.Printf("Failed to create bot API: %v, retrying in %v", err, delay)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("failed to create bot API: %w", err)
		case <-time.After(delay):
		}
		delay = min(delay*2, time.Minute)
	}
}

func newCompleter(cfg *config.Config) (ai.Completer, error) {
	if cfg.LLMProvider == config.ProviderAnthropic {
		return ai.NewAnthropicCompleter(cfg.LLMAPIKey, cfg.LLMModel), nil
	}
	return ai.NewOpenAICompleter(cfg.LLMAPIKey, cfg.LLMBaseURL, cfg.LLMModel)
}

// assemble loads persisted state and wires the services around botAPI
func assemble(ctx context.Context, botAPI *tgbotapi.BotAPI, cfg *config.Config, store database.Store, completer ai.Completer) (*Bot, error) {
	profileCol := database.NewCollection[models.Profile](store, database.Profiles)
	messageCol := database.NewCollection[[]models.ChatMessage](store, database.Messages)
	sessionCol := database.NewCollection[models.Session](store, database.ExamStates)
	scoreCol := database.NewCollection[models.TopicScores](store, database.QuestionStats)

	for _, load := range []func(context.Context) error{profileCol.Load, messageCol.Load, sessionCol.Load, scoreCol.Load} {
		if err := load(ctx); err != nil {
			return nil, fmt.Errorf("failed to load data: %w", err)
		}
	}
	log.Printf("Loaded %d profiles, %d conversations, %d exam states, %d score histories",
		profileCol.Len(), messageCol.Len(), sessionCol.Len(), scoreCol.Len())

	topics := questions.DefaultTopics
	if cfg.TopicsFile != "" {
		loaded, err := questions.LoadTopics(cfg.TopicsFile)
		if err != nil {
			log.Printf("Warning: failed to load topics from %s: %v, using default topics", cfg.TopicsFile, err)
		} else {
			topics = loaded
		}
	}
	banks := questions.NewLoader(cfg.QuestionsDir, topics)
	for key, n := range banks.Sizes() {
		log.Printf("Topic %q: %d questions", key, n)
	}

	tracker := history.NewTracker(scoreCol)
	selector := history.NewSelector(tracker, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())))

	transcriber := ai.NewWhisperClient(cfg.TranscribeAPIKey, cfg.TranscribeBaseURL, cfg.TranscribeModel, cfg.TranscribeLanguage)
	client := ai.NewClient(completer, transcriber, cfg.AITimeout)

	profileSvc := profiles.NewService(profileCol, cfg.LLMModel, cfg.AllowModelOverride)
	out := newSender(botAPI, topics)

	engine := exam.New(exam.Deps{
		Sessions:   sessionCol,
		Banks:      banks,
		Scorer:     client,
		Recorder:   tracker,
		Picker:     selector,
		Profiles:   profileSvc,
		Sender:     out,
		TheoryMode: cfg.TheoryMode,
	})

	return &Bot{
		api:            botAPI,
		store:          store,
		sender:         out,
		engine:         engine,
		dialog:         dialog.NewService(messageCol, client),
		profiles:       profileSvc,
		ai:             client,
		http:           &http.Client{Timeout: cfg.AITimeout},
		reconnectDelay: cfg.ReconnectDelay,
	}, nil
}

// Engine exposes the exam engine
func (b *Bot) Engine() *exam.Engine {
	return b.engine
}

// Profiles exposes the profile service
func (b *Bot) Profiles() *profiles.Service {
	return b.profiles
}

// Close releases the database
func (b *Bot) Close() error {
	return b.store.Close()
}

// Start registers the commands and listens for updates until ctx is done.
// Each update is handled on its own goroutine.
func (b *Bot) Start(ctx context.Context) {
	b.setCommands()
	log.Println("Starting bot polling...")

	for {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 60
		updates := b.api.GetUpdatesChan(u)

		if b.consume(ctx, updates) {
			b.api.StopReceivingUpdates()
			log.Println("Bot polling stopped")
			return
		}

		log.Printf("Update channel closed, reconnecting in %v", b.reconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(b.reconnectDelay):
		}
	}
}

// consume dispatches updates and reports whether ctx ended the loop
func (b *Bot) consume(ctx context.Context, updates tgbotapi.UpdatesChannel) bool {
	for {
		select {
		case <-ctx.Done():
			return true
		case update, ok := <-updates:
			if !ok {
				return false
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) setCommands() {
	commands := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: cmdStart, Description: "Начать работу с ботом"},
		tgbotapi.BotCommand{Command: cmdHelp, Description: "Справка по командам"},
		tgbotapi.BotCommand{Command: cmdExam, Description: "Начать экзамен"},
		tgbotapi.BotCommand{Command: cmdSettings, Description: "Статистика и настройки"},
		tgbotapi.BotCommand{Command: cmdClear, Description: "Очистить историю диалога"},
		tgbotapi.BotCommand{Command: cmdCancelExam, Description: "Отменить экзамен"},
	)
	if _, err := b.api.Request(commands); err != nil {
		log.Printf("Error setting bot commands: %v", err)
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in update handler: %v", r)
		}
	}()

	if update.Message != nil && update.Message.From != nil {
		b.handleMessage(ctx, update.Message)
	}
}

// handleMessage processes incoming messages
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	ev := eventFor(message)
	log.Printf("Received message from %s (ID: %s): %s", ev.UserName, ev.UserID, message.Text)

	if err := b.profiles.Touch(ctx, ev.UserID, ev.UserName); err != nil {
		log.Printf("Error saving user profile: %v", err)
	}

	switch {
	case message.IsCommand():
		b.handleCommand(ctx, ev, message)
	case message.Voice != nil:
		b.handleVoice(ctx, ev, message.Voice)
	case message.Text != "":
		b.handleText(ctx, ev)
	}
}

func (b *Bot) handleCommand(ctx context.Context, ev exam.Event, message *tgbotapi.Message) {
	switch message.Command() {
	case cmdStart:
		b.handleStartCommand(ev, message.From.FirstName)
	case cmdHelp:
		b.handleHelpCommand(ev)
	case cmdExam:
		b.engine.StartExam(ctx, ev)
	case cmdSettings:
		b.handleSettingsCommand(ev)
	case cmdClear:
		b.handleClearCommand(ctx, ev)
	case cmdCancelExam:
		b.engine.Cancel(ctx, ev)
	case cmdModel:
		b.handleModelCommand(ctx, ev, message.CommandArguments())
	default:
		b.reply(ev, "Неизвестная команда. Используйте /help для справки.", exam.MenuKeep)
	}
}

// handleText gives the exam flow the first chance at the text, then the
// main menu buttons, then free chat
func (b *Bot) handleText(ctx context.Context, ev exam.Event) {
	if b.engine.HandleInput(ctx, ev) {
		return
	}

	switch strings.TrimSpace(ev.Text) {
	case exam.ButtonStartExam:
		b.engine.StartExam(ctx, ev)
	case exam.ButtonStats:
		b.handleSettingsCommand(ev)
	case exam.ButtonClear:
		b.handleClearCommand(ctx, ev)
	default:
		b.handleChat(ctx, ev)
	}
}

func (b *Bot) handleChat(ctx context.Context, ev exam.Event) {
	if err := b.profiles.Increment(ctx, ev.UserID, profiles.TextRequest); err != nil {
		log.Printf("Error saving user stats: %v", err)
	}

	placeholder, ok := b.sender.sendMessage(ev.ChatID, "🤔 Думаю...", false, nil)

	reply, err := b.dialog.Ask(ctx, ev.UserID, b.profiles.Model(ev.UserID), ev.Text)
	if err != nil {
		log.Printf("Error answering user %s: %v", ev.UserID, err)
		b.reply(ev, "❌ Ошибка: "+userMessage(err)+"\n\nИспользуйте /clear для сброса контекста.", exam.MenuKeep)
		return
	}

	if ok {
		b.sender.replaceMessage(ev.ChatID, placeholder.MessageID, reply)
		return
	}
	b.sender.Send(ev.ChatID, exam.Reply{Text: reply, Markdown: true})
}

func (b *Bot) reply(ev exam.Event, text string, menu exam.Menu) {
	b.sender.Send(ev.ChatID, exam.Reply{Text: text, Menu: menu})
}

func eventFor(message *tgbotapi.Message) exam.Event {
	return exam.Event{
		Origin:   exam.OriginText,
		UserID:   strconv.FormatInt(message.From.ID, 10),
		ChatID:   message.Chat.ID,
		UserName: message.From.UserName,
		Text:     message.Text,
	}
}

func userMessage(err error) string {
	var se *ai.ServiceError
	if errors.As(err, &se) {
		return se.UserMessage()
	}
	return "не удалось получить ответ"
}
