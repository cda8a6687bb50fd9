package journal

import (
	"strings"
	"testing"
	"time"
)

func TestEncodeKeepsZeroFields(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	start := NewSessionStart("s-1", "Games", "one level", at)

	tests := []struct {
		name   string
		entry  Entry
		want   []string
		absent []string
	}{
		{
			name:   "wrong answer",
			entry:  NewCreditEarned("medium", "12 + 30", false, 0, at),
			want:   []string{`"event":"credit_earned"`, `"correct":false`, `"points":0`},
			absent: []string{`"amount"`, `"duration_seconds"`},
		},
		{
			name:   "zero length session",
			entry:  NewSessionEnd(start, 0, ReasonLimitReached, at),
			want:   []string{`"duration_seconds":0`, `"reason":"limit_reached"`, `"session_id":"s-1"`},
			absent: []string{`"points"`, `"correct"`},
		},
		{
			name:   "purchase",
			entry:  NewCreditSpent(10, 2, at),
			want:   []string{`"amount":10`, `"minutes":2`},
			absent: []string{`"points"`},
		},
		{
			name:   "question limit",
			entry:  NewQuestionLimitReached(at),
			want:   []string{`"event":"question_limit_reached"`},
			absent: []string{`"points"`, `"duration_seconds"`, `"correct"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := encode(tt.entry)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			line := string(data)
			for _, w := range tt.want {
				if !strings.Contains(line, w) {
					t.Errorf("encoded %s, missing %s", line, w)
				}
			}
			for _, a := range tt.absent {
				if strings.Contains(line, a) {
					t.Errorf("encoded %s, unexpected %s", line, a)
				}
			}
			if strings.Count(line, `"event"`) != 1 {
				t.Errorf("encoded %s, want exactly one event key", line)
			}

			back, err := decode(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if back.Kind != tt.entry.Kind || back.Points != tt.entry.Points || back.DurationSeconds != tt.entry.DurationSeconds {
				t.Errorf("decoded %+v, want %+v", back, tt.entry)
			}
		})
	}
}

func TestDecodeWrongAnswerIsNotCorrect(t *testing.T) {
	data, err := encode(NewCreditEarned("easy", "2 + 2", false, 0, time.Now()))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	e, err := decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Correct == nil || e.WasCorrect() {
		t.Errorf("Correct = %v, want explicit false", e.Correct)
	}
}
