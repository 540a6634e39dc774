package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/korjavin/exambot/exam"
	"github.com/korjavin/exambot/profiles"
)

func (b *Bot) handleStartCommand(ev exam.Event, firstName string) {
	if firstName == "" {
		firstName = ev.UserName
	}
	welcomeText := fmt.Sprintf(`👋 Привет, %s!

Я ИИ-бот для подготовки к экзаменам.

Что я умею:
• 🎯 Проводить экзамены с оценкой ответов
• 📖 Показывать теорию по темам
• 🎤 Обрабатывать голосовые сообщения
• 💬 Отвечать на вопросы

Выберите действие на клавиатуре ниже!`, firstName)

	b.reply(ev, welcomeText, exam.MenuMain)
}

func (b *Bot) handleHelpCommand(ev exam.Event) {
	helpText := `📖 Справка по командам:

🎯 /exam — начать экзамен
📊 /settings — статистика и настройки
🗑 /clear — очистить историю диалога
❌ /cancel_exam — отменить текущий экзамен`
	if b.profiles.OverrideAllowed() {
		helpText += "\n🧠 /model <название> — выбрать модель ИИ"
	}
	helpText += "\n\nИли используйте кнопки на клавиатуре!"

	b.reply(ev, helpText, exam.MenuKeep)
}

func (b *Bot) handleSettingsCommand(ev exam.Event) {
	p, _ := b.profiles.Get(ev.UserID)
	statsText := fmt.Sprintf(`📊 Ваша статистика:

👤 Пользователь: %s
💬 Текстовые запросы: %d
🎤 Голосовые запросы: %d
🧠 Модель ИИ: %s
📝 Экзаменационных ответов: %d`,
		p.UserName, p.TextRequests, p.VoiceRequests, b.profiles.Model(ev.UserID), p.ExamAnswered)

	b.reply(ev, statsText, exam.MenuMain)
}

func (b *Bot) handleClearCommand(ctx context.Context, ev exam.Event) {
	if err := b.dialog.Clear(ctx, ev.UserID); err != nil {
		log.Printf("Error clearing messages for user %s: %v", ev.UserID, err)
	}
	b.reply(ev, "🗑 История диалога очищена!", exam.MenuMain)
}

func (b *Bot) handleModelCommand(ctx context.Context, ev exam.Event, args string) {
	err := b.profiles.SetModel(ctx, ev.UserID, args)
	switch {
	case errors.Is(err, profiles.ErrOverrideDisabled):
		b.reply(ev, "🧠 Выбор модели отключен. Используется "+b.profiles.Model(ev.UserID), exam.MenuKeep)
	case err != nil:
		log.Printf("Error saving model for user %s: %v", ev.UserID, err)
		b.reply(ev, "❌ Не удалось сохранить модель.", exam.MenuKeep)
	default:
		log.Printf("User %s switched model to %q", ev.UserID, strings.TrimSpace(args))
		b.reply(ev, "🧠 Модель ИИ: "+b.profiles.Model(ev.UserID), exam.MenuKeep)
	}
}
