package models

// State is the position of a user inside the exam flow
type State string

const (
	StateAwaitingTopic  State = "awaiting_topic"
	StateAwaitingAnswer State = "awaiting_answer"
	StateAwaitingAction State = "awaiting_action"
)

// Session is the durable exam-in-progress record of a single user.
// Answer is a copy of the bank entry for Question, not the whole bank.
type Session struct {
	ID        string `json:"id"`
	State     State  `json:"state"`
	Topic     string `json:"topic,omitempty"`
	Question  string `json:"question,omitempty"`
	Answer    string `json:"answer,omitempty"`
	StartedAt int64  `json:"start_time"`
}
