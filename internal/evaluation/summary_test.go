package evaluation

import (
	"strings"
	"testing"

	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestClassifyPacing(t *testing.T) {
	answer100 := strings.Repeat("a", 100) // expects 10 seconds

	tests := []struct {
		name    string
		answer  string
		elapsed *int
		want    repository.Pacing
	}{
		{name: "no duration", answer: answer100, elapsed: nil, want: ""},
		{name: "too fast", answer: answer100, elapsed: intPtr(4), want: repository.PacingTooFast},
		{name: "half expected is appropriate", answer: answer100, elapsed: intPtr(5), want: repository.PacingAppropriate},
		{name: "on time", answer: answer100, elapsed: intPtr(10), want: repository.PacingAppropriate},
		{name: "too slow", answer: answer100, elapsed: intPtr(16), want: repository.PacingTooSlow},
		{name: "short answer under floor", answer: "yes", elapsed: intPtr(9), want: repository.PacingAppropriate},
		{name: "short answer over floor", answer: "yes", elapsed: intPtr(11), want: repository.PacingTooSlow},
		{name: "multibyte counts runes", answer: strings.Repeat("あ", 100), elapsed: intPtr(10), want: repository.PacingAppropriate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPacing(tt.answer, tt.elapsed); got != tt.want {
				t.Fatalf("ClassifyPacing() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSummarizeEmotion(t *testing.T) {
	if got := SummarizeEmotion(nil); got != noEmotionData {
		t.Fatalf("unexpected empty summary: %q", got)
	}

	samples := []repository.EmotionSample{
		{Score: 95, Reason: "sad(60.0%): (-3), happy(20.0%): (+5)"},
		{Score: 100, Reason: "happy(70.0%): (+5), sad(10.0%): (-3)"},
	}
	// sad and happy tie at two mentions; sad was seen first.
	want := "average score 97.5, dominant emotion sad"
	if got := SummarizeEmotion(samples); got != want {
		t.Fatalf("SummarizeEmotion() = %q, want %q", got, want)
	}

	samples = append(samples, repository.EmotionSample{Score: 100, Reason: "happy(90.0%): (+5)"})
	if got := SummarizeEmotion(samples); !strings.HasSuffix(got, "dominant emotion happy") {
		t.Fatalf("expected happy to dominate, got %q", got)
	}

	if got := SummarizeEmotion([]repository.EmotionSample{{Score: 40}}); got != "average score 40.0" {
		t.Fatalf("unexpected summary without reasons: %q", got)
	}
}

func TestBuildSummaries(t *testing.T) {
	answers := []repository.AnswerRecord{
		{QuestionNumber: 1, QuestionText: "q1", AnswerText: "a1"},
		{QuestionNumber: 2, QuestionText: "q2", AnswerText: "a2"},
	}
	samples := []repository.EmotionSample{
		{QuestionNumber: 2, Score: 80, Reason: "fear(50.0%): (-4)"},
		{QuestionNumber: 3, Score: 10, Reason: "angry(50.0%): (-4)"},
	}
	got := BuildSummaries(answers, samples)
	if len(got) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(got))
	}
	if got[0].EmotionSummary != noEmotionData {
		t.Fatalf("question 1 should have no emotion data, got %q", got[0].EmotionSummary)
	}
	if got[1].Question != "q2" || got[1].EmotionSummary != "average score 80.0, dominant emotion fear" {
		t.Fatalf("unexpected summary: %+v", got[1])
	}
}

func TestChunkSummaries(t *testing.T) {
	summaries := make([]oracle.QuestionSummary, 7)
	for i := range summaries {
		summaries[i].QuestionNumber = i + 1
	}
	chunks := chunkSummaries(summaries, 3)
	if len(chunks) != 3 || len(chunks[0]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunk layout: %v", chunks)
	}
	if chunks[2][0].QuestionNumber != 7 {
		t.Fatalf("unexpected last chunk: %+v", chunks[2])
	}
	if got := chunkSummaries(nil, 3); len(got) != 0 {
		t.Fatalf("expected no chunks, got %d", len(got))
	}
	if got := chunkSummaries(summaries, 0); len(got) != 2 || len(got[0]) != defaultBatchSize {
		t.Fatalf("expected default chunking for size 0, got %v", got)
	}
}
