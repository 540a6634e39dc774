package ai

import "testing"

func TestParseScore(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   int
		wantOK bool
	}{
		{name: "primary pattern", input: "Оценка: 78%\nРекомендация: ...", want: 78, wantOK: true},
		{name: "primary lower case", input: "оценка:95%", want: 95, wantOK: true},
		{name: "primary inside text", input: "Итак.\nОценка:   100%\n", want: 100, wantOK: true},
		{name: "english label", input: "Good answer.\nScore: 78%", want: 78, wantOK: true},
		{name: "english label lower case", input: "score:5%", want: 5, wantOK: true},
		{name: "leading percent", input: "85% similar", want: 85, wantOK: true},
		{name: "leading percent after spaces", input: "  0% совпадения", want: 0, wantOK: true},
		{name: "no token", input: "Хороший ответ, но не хватает деталей", wantOK: false},
		{name: "percent not at start", input: "Совпадение 85%", wantOK: false},
		{name: "primary out of range falls back", input: "Оценка: 150%", wantOK: false},
		{name: "primary out of range uses leading", input: "40% — Оценка: 150%", want: 40, wantOK: true},
		{name: "empty", input: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseScore(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseScore(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("ParseScore(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestRemoveThinkBlocks(t *testing.T) {
	in := "<think>\nreasoning\n</think>\nОценка: 50%"
	if got := RemoveThinkBlocks(in); got != "Оценка: 50%" {
		t.Errorf("RemoveThinkBlocks() = %q", got)
	}
	if got := RemoveThinkBlocks("<THINK>x</THINK>ok"); got != "ok" {
		t.Errorf("RemoveThinkBlocks() case-insensitive = %q", got)
	}
}
