package models

// Topic describes a subject area with its own question bank file
type Topic struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	File        string `json:"questions_file"`
}

// Bank maps question text to its reference answer
type Bank map[string]string

// TopicScores holds bounded score histories keyed by topic and then by question fingerprint
type TopicScores map[string]map[string][]int
