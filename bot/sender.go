package bot

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"github.com/korjavin/exambot/exam"
	"github.com/korjavin/exambot/models"
)

// maxMessageLength is Telegram's limit for a single text message
const maxMessageLength = 4096

// sender delivers engine replies over the Bot API
type sender struct {
	api    *tgbotapi.BotAPI
	topics []models.Topic
}

var _ exam.Sender = (*sender)(nil)

func newSender(api *tgbotapi.BotAPI, topics []models.Topic) *sender {
	return &sender{api: api, topics: topics}
}

// Send splits long replies and attaches the keyboard to the last part
func (s *sender) Send(chatID int64, r exam.Reply) {
	parts := splitMessage(r.Text)
	for i, part := range parts {
		var markup interface{}
		if i == len(parts)-1 {
			markup = s.keyboard(r.Menu)
		}
		s.sendMessage(chatID, part, r.Markdown, markup)
	}
}

// sendMessage sends a text message, falling back to plain text when
// Telegram rejects the Markdown
func (s *sender) sendMessage(chatID int64, text string, markdown bool, markup interface{}) (tgbotapi.Message, bool) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	sent, err := s.api.Send(msg)
	if err == nil {
		return sent, true
	}
	log.Printf("Error sending message: %v", err)

	if !markdown {
		return tgbotapi.Message{}, false
	}

	log.Printf("Markdown rendering failed, falling back to plain text")
	msg.ParseMode = ""
	sent, err = s.api.Send(msg)
	if err != nil {
		log.Printf("Plain text fallback also failed: %v", err)
		return tgbotapi.Message{}, false
	}
	return sent, true
}

// editMessage replaces the text of a sent message with the same fallback
func (s *sender) editMessage(chatID int64, messageID int, text string) bool {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown

	if _, err := s.api.Send(edit); err != nil {
		log.Printf("Error editing message: %v", err)

		plainEdit := tgbotapi.NewEditMessageText(chatID, messageID, text)
		if _, err := s.api.Send(plainEdit); err != nil {
			log.Printf("Plain text edit fallback also failed: %v", err)
			return false
		}
	}
	return true
}

// replaceMessage puts the first part of text into an existing message and
// sends the rest as new messages
func (s *sender) replaceMessage(chatID int64, messageID int, text string) {
	parts := splitMessage(text)
	if !s.editMessage(chatID, messageID, parts[0]) {
		s.sendMessage(chatID, parts[0], true, nil)
	}
	for _, part := range parts[1:] {
		s.sendMessage(chatID, part, true, nil)
	}
}

func (s *sender) keyboard(menu exam.Menu) interface{} {
	switch menu {
	case exam.MenuMain:
		return mainKeyboard()
	case exam.MenuExam:
		return examKeyboard()
	case exam.MenuTopics:
		return topicsKeyboard(s.topics)
	case exam.MenuHidden:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(exam.ButtonStartExam)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(exam.ButtonStats),
			tgbotapi.NewKeyboardButton(exam.ButtonClear),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func examKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(exam.ButtonTheory)),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(exam.ButtonNext),
			tgbotapi.NewKeyboardButton(exam.ButtonEnd),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

// topicsKeyboard lays topics out two per row with a back button below
func topicsKeyboard(topics []models.Topic) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	for _, pair := range lo.Chunk(topics, 2) {
		rows = append(rows, lo.Map(pair, func(t models.Topic, _ int) tgbotapi.KeyboardButton {
			return tgbotapi.NewKeyboardButton(t.DisplayName)
		}))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(exam.ButtonBack)))

	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	return kb
}

// splitMessage cuts text into chunks Telegram accepts. It always returns
// at least one element.
func splitMessage(text string) []string {
	if text == "" {
		return []string{""}
	}
	return lo.ChunkString(text, maxMessageLength)
}
