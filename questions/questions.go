package questions

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/samber/lo"

	"github.com/korjavin/exambot/models"
)

// DefaultTopics is used when no topics file is configured
var DefaultTopics = []models.Topic{
	{Key: "python", DisplayName: "Питончик 🐍", File: "answers_python.json"},
	{Key: "Текст", DisplayName: "текст 🔢", File: "answers_graph.json"},
	{Key: "clash royale", DisplayName: "Клещ рояль 🐞", File: "answers_royale.json"},
}

// Loader reads question banks per topic and caches them for the process lifetime
type Loader struct {
	dir    string
	topics []models.Topic

	mu    sync.Mutex
	cache map[string]models.Bank
}

// NewLoader creates a loader resolving bank files relative to dir
func NewLoader(dir string, topics []models.Topic) *Loader {
	return &Loader{
		dir:    dir,
		topics: topics,
		cache:  make(map[string]models.Bank),
	}
}

// LoadTopics reads the topic registry from a JSON array file
func LoadTopics(path string) ([]models.Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var topics []models.Topic
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("parse topics file: %w", err)
	}

	valid := lo.Filter(topics, func(t models.Topic, _ int) bool {
		return t.Key != "" && t.File != ""
	})
	if len(valid) == 0 {
		return nil, fmt.Errorf("topics file %s has no usable topics", path)
	}
	for i := range valid {
		if valid[i].DisplayName == "" {
			valid[i].DisplayName = valid[i].Key
		}
	}
	return valid, nil
}

// Topics returns the configured topics in display order
func (l *Loader) Topics() []models.Topic {
	return l.topics
}

// Topic returns the topic with the given key
func (l *Loader) Topic(key string) (models.Topic, bool) {
	return lo.Find(l.topics, func(t models.Topic) bool { return t.Key == key })
}

// Load returns the bank for a topic. Missing, empty or malformed sources
// yield an empty bank and a warning; they are cached like any other result.
func (l *Loader) Load(key string) models.Bank {
	l.mu.Lock()
	defer l.mu.Unlock()

	if bank, ok := l.cache[key]; ok {
		return bank
	}

	bank := l.read(key)
	l.cache[key] = bank
	log.Printf("Loaded %d questions for topic %q", len(bank), key)
	return bank
}

func (l *Loader) read(key string) models.Bank {
	topic, ok := l.Topic(key)
	if !ok {
		log.Printf("Warning: unknown topic %q", key)
		return models.Bank{}
	}

	path := topic.File
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("Warning: question bank for %q unavailable: %v", key, err)
		return models.Bank{}
	}

	var bank models.Bank
	if err := json.Unmarshal(data, &bank); err != nil {
		log.Printf("Warning: question bank for %q is malformed: %v", key, err)
		return models.Bank{}
	}
	if bank == nil {
		return models.Bank{}
	}

	// Blank questions can't be asked.
	delete(bank, "")
	return bank
}

// Sizes returns the number of questions per topic key
func (l *Loader) Sizes() map[string]int {
	sizes := make(map[string]int, len(l.topics))
	for _, t := range l.topics {
		sizes[t.Key] = len(l.Load(t.Key))
	}
	return sizes
}

// Find resolves a user's topic choice: exact display name first, then the
// key ignoring case, then a fuzzy match if exactly one topic matches.
func (l *Loader) Find(text string) (models.Topic, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Topic{}, false
	}

	if t, ok := lo.Find(l.topics, func(t models.Topic) bool { return t.DisplayName == text }); ok {
		return t, true
	}
	if t, ok := lo.Find(l.topics, func(t models.Topic) bool { return strings.EqualFold(t.Key, text) }); ok {
		return t, true
	}

	matches := lo.Filter(l.topics, func(t models.Topic, _ int) bool {
		return fuzzy.MatchNormalizedFold(text, t.DisplayName) || fuzzy.MatchNormalizedFold(text, t.Key)
	})
	if len(matches) == 1 {
		return matches[0], true
	}
	return models.Topic{}, false
}
