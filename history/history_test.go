package history

import (
	"context"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/korjavin/exambot/database"
	"github.com/korjavin/exambot/models"
)

func newTracker() *Tracker {
	return NewTracker(database.NewCollection[models.TopicScores](database.NewMemoryStore(), database.QuestionStats))
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("Что такое декоратор?")
	if len(a) != 12 {
		t.Errorf("len(Fingerprint) = %d, want 12", len(a))
	}
	if a != Fingerprint("Что такое декоратор?") {
		t.Error("Fingerprint is not stable")
	}
	if a == Fingerprint("Что такое генератор?") {
		t.Error("different questions share a fingerprint")
	}
	// md5("abc") = 900150983cd24fb0d6963f7d28e17f72
	if got := Fingerprint("abc"); got != "900150983cd2" {
		t.Errorf("Fingerprint(abc) = %q", got)
	}
}

func TestRecordKeepsLastFive(t *testing.T) {
	ctx := context.Background()

	for calls := 0; calls <= 8; calls++ {
		tr := newTracker()
		var want []int
		for i := 0; i < calls; i++ {
			score := i * 10
			if err := tr.Record(ctx, "1", "python", "Q", score); err != nil {
				t.Fatalf("Record() error = %v", err)
			}
			want = append(want, score)
		}
		if len(want) > MaxHistory {
			want = want[len(want)-MaxHistory:]
		}

		got := tr.Scores("1", "python", "Q")
		if len(got) != min(calls, MaxHistory) {
			t.Errorf("calls=%d: len = %d, want %d", calls, len(got), min(calls, MaxHistory))
		}
		if len(want) > 0 && !reflect.DeepEqual(got, want) {
			t.Errorf("calls=%d: scores = %v, want %v", calls, got, want)
		}
	}
}

func TestRecordRejectsOutOfRange(t *testing.T) {
	tr := newTracker()
	for _, score := range []int{-1, 101} {
		if err := tr.Record(context.Background(), "1", "python", "Q", score); err == nil {
			t.Errorf("Record(%d) should fail", score)
		}
	}
	if tr.HasHistory("1", "python", "Q") {
		t.Error("rejected scores were recorded")
	}
}

func TestAverage(t *testing.T) {
	ctx := context.Background()
	tr := newTracker()

	if got := tr.Average("1", "python", "Q"); got != 0 {
		t.Errorf("Average without history = %v, want 0", got)
	}

	for _, s := range []int{50, 70, 90} {
		if err := tr.Record(ctx, "1", "python", "Q", s); err != nil {
			t.Fatal(err)
		}
	}
	if got := tr.Average("1", "python", "Q"); got != 70 {
		t.Errorf("Average = %v, want 70", got)
	}

	// Histories are isolated by user and topic.
	if got := tr.Average("2", "python", "Q"); got != 0 {
		t.Errorf("other user Average = %v, want 0", got)
	}
	if got := tr.Average("1", "go", "Q"); got != 0 {
		t.Errorf("other topic Average = %v, want 0", got)
	}
}

func TestRecordPersists(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	tr := NewTracker(database.NewCollection[models.TopicScores](store, database.QuestionStats))
	if err := tr.Record(ctx, "1", "python", "Q", 40); err != nil {
		t.Fatal(err)
	}

	reloaded := database.NewCollection[models.TopicScores](store, database.QuestionStats)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if got := NewTracker(reloaded).Scores("1", "python", "Q"); !reflect.DeepEqual(got, []int{40}) {
		t.Errorf("reloaded scores = %v, want [40]", got)
	}
}

func TestWeight(t *testing.T) {
	tests := []struct {
		average float64
		want    float64
	}{
		{average: 0, want: 10000},
		{average: 10, want: 8100},
		{average: 90, want: 100},
		{average: 99.5, want: 1},
		{average: 100, want: 1},
	}
	for _, tt := range tests {
		if got := Weight(tt.average); got != tt.want {
			t.Errorf("Weight(%v) = %v, want %v", tt.average, got, tt.want)
		}
	}
}

type fixedAverages map[string]float64

func (f fixedAverages) Average(_, _, question string) float64 { return f[question] }

func TestSelectSingleQuestion(t *testing.T) {
	s := NewSelector(fixedAverages{"only": 100}, nil)
	for i := 0; i < 10; i++ {
		if got := s.Select("1", "python", models.Bank{"only": "a"}); got != "only" {
			t.Fatalf("Select() = %q, want only", got)
		}
	}
}

func TestSelectEmptyBank(t *testing.T) {
	s := NewSelector(fixedAverages{}, nil)
	if got := s.Select("1", "python", models.Bank{}); got != "" {
		t.Errorf("Select(empty) = %q", got)
	}
	if got := s.Random(nil); got != "" {
		t.Errorf("Random(nil) = %q", got)
	}
}

func TestSelectFavoursWeakQuestions(t *testing.T) {
	s := NewSelector(fixedAverages{"strong": 90, "weak": 10}, rand.New(rand.NewPCG(1, 2)))
	bank := models.Bank{"strong": "a", "weak": "b"}

	counts := map[string]int{}
	const trials = 10000
	for i := 0; i < trials; i++ {
		counts[s.Select("1", "python", bank)]++
	}

	// Expected ratio is 8100:100, so "weak" should win about 98.8% of draws.
	if counts["weak"] < trials*9/10 {
		t.Errorf("weak selected %d/%d times, expected a strong bias", counts["weak"], trials)
	}
	if counts["strong"] == 0 {
		t.Error("strong question was never selected; every question must stay reachable")
	}
}

func TestSelectUniformWithoutHistory(t *testing.T) {
	s := NewSelector(fixedAverages{}, rand.New(rand.NewPCG(3, 4)))
	bank := models.Bank{"a": "", "b": "", "c": "", "d": ""}

	counts := map[string]int{}
	const trials = 8000
	for i := 0; i < trials; i++ {
		counts[s.Select("1", "python", bank)]++
	}
	for q := range bank {
		if counts[q] < trials/4-300 || counts[q] > trials/4+300 {
			t.Errorf("question %q selected %d times, want about %d", q, counts[q], trials/4)
		}
	}
}
