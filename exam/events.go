package exam

// Origin tells how the text of an event was produced
type Origin int

const (
	OriginText Origin = iota
	OriginVoice
)

// Event is the normalized inbound message every transport adapter builds
// before handing it to the engine. For voice, Text is the transcription.
type Event struct {
	Origin   Origin
	UserID   string
	ChatID   int64
	UserName string
	Text     string
}

// Menu selects the response-option keyboard shown with a reply
type Menu int

const (
	// MenuKeep leaves the current keyboard untouched
	MenuKeep Menu = iota
	MenuMain
	MenuTopics
	MenuExam
	// MenuHidden removes the keyboard while an answer is expected
	MenuHidden
)

// Reply is an outbound message. Long texts are split by the transport.
type Reply struct {
	Text     string
	Menu     Menu
	Markdown bool
}

// Sender delivers replies to a chat
type Sender interface {
	Send(chatID int64, r Reply)
}

// Button labels shared by the engine and the keyboards
const (
	ButtonStartExam = "📚 Начать экзамен"
	ButtonStats     = "📊 Статистика"
	ButtonClear     = "🗑 Очистить историю"
	ButtonTheory    = "📖 Показать теорию"
	ButtonNext      = "⏭️ Следующий вопрос"
	ButtonEnd       = "❌ Завершить экзамен"
	ButtonBack      = "🔙 Назад в меню"
)

// isMainMenuButton reports whether text is one of the main keyboard buttons,
// which take precedence over answering a question.
func isMainMenuButton(text string) bool {
	switch text {
	case ButtonStartExam, ButtonStats, ButtonClear:
		return true
	}
	return false
}
