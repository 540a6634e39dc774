package history

import (
	"log"
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/korjavin/exambot/models"
)

// Averager gives the historical mean score of a question
type Averager interface {
	Average(userID, topic, question string) float64
}

// Selector picks the next question, favouring weak and unseen ones
type Selector struct {
	scores Averager

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a selector. A nil rng uses a randomly seeded source.
func NewSelector(scores Averager, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{scores: scores, rng: rng}
}

// Weight turns an average score into a sampling weight, (100-avg)^2 floored at 1
func Weight(average float64) float64 {
	return math.Max(math.Pow(100-average, 2), 1)
}

// Select draws one question from the whole bank with weights derived from
// the user's history. It returns "" for an empty bank.
func (s *Selector) Select(userID, topic string, bank models.Bank) string {
	candidates := lo.Keys(bank)
	if len(candidates) == 0 {
		return ""
	}
	if len(candidates) == 1 {
		return candidates[0]
	}
	sort.Strings(candidates)

	weights := lo.Map(candidates, func(q string, _ int) float64 {
		return Weight(s.scores.Average(userID, topic, q))
	})
	total := lo.Sum(weights)

	s.mu.Lock()
	r := s.rng.Float64() * total
	s.mu.Unlock()

	for i, w := range weights {
		if r < w {
			return candidates[i]
		}
		r -= w
	}
	log.Printf("Weighted draw fell through for user %s, topic %s", userID, topic)
	return candidates[len(candidates)-1]
}

// Random picks a question uniformly, used for the first question of a session
func (s *Selector) Random(bank models.Bank) string {
	candidates := lo.Keys(bank)
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)

	s.mu.Lock()
	defer s.mu.Unlock()
	return candidates[s.rng.IntN(len(candidates))]
}
