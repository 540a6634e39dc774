package models

// Profile stores per-user counters and the preferred model
type Profile struct {
	UserName      string `json:"username"`
	TextRequests  int    `json:"text_requests"`
	VoiceRequests int    `json:"voice_requests"`
	ExamAnswered  int    `json:"exam_answered"`
	Model         string `json:"model,omitempty"`
}

// Chat message roles used in the conversation history
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single entry of a user's conversation history
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
