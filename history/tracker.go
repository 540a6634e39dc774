package history

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/samber/lo"

	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/models"
)

// MaxHistory is the number of most recent scores kept per question
const MaxHistory = 5

// Fingerprint maps question text to a short stable key
func Fingerprint(question string) string {
	sum := md5.Sum([]byte(question))
	return hex.EncodeToString(sum[:])[:12]
}

// Tracker records bounded per-question score history per user and topic
type Tracker struct {
	scores *database.Collection[models.TopicScores]
}

// NewTracker creates a tracker over the question stats collection
func NewTracker(scores *database.Collection[models.TopicScores]) *Tracker {
	return &Tracker{scores: scores}
}

// Record appends score to the question's history, dropping the oldest
// entries past MaxHistory, and persists immediately.
func (t *Tracker) Record(ctx context.Context, userID, topic, question string, score int) error {
	if score < 0 || score > 100 {
		return fmt.Errorf("score %d out of range 0..100", score)
	}
	key := Fingerprint(question)

	return t.scores.Update(ctx, userID, func(v *models.TopicScores) bool {
		if *v == nil {
			*v = models.TopicScores{}
		}
		byQuestion := (*v)[topic]
		if byQuestion == nil {
			byQuestion = make(map[string][]int)
			(*v)[topic] = byQuestion
		}

		list := append(byQuestion[key], score)
		if len(list) > MaxHistory {
			list = append([]int(nil), list[len(list)-MaxHistory:]...)
		}
		byQuestion[key] = list
		return true
	})
}

// Scores returns a copy of the recorded scores, oldest first
func (t *Tracker) Scores(userID, topic, question string) []int {
	key := Fingerprint(question)
	var scores []int
	t.scores.View(userID, func(v models.TopicScores, ok bool) {
		if ok {
			scores = append(scores, v[topic][key]...)
		}
	})
	return scores
}

// Average returns the mean of the recorded scores, or 0 without history
func (t *Tracker) Average(userID, topic, question string) float64 {
	scores := t.Scores(userID, topic, question)
	if len(scores) == 0 {
		return 0
	}
	return float64(lo.Sum(scores)) / float64(len(scores))
}

// HasHistory reports whether any score was recorded for the question
func (t *Tracker) HasHistory(userID, topic, question string) bool {
	return len(t.Scores(userID, topic, question)) > 0
}
