package evaluation

import (
	"fmt"
	"unicode/utf8"

	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

const (
	// expectedCharsPerSecond is the speaking rate the pacing heuristic assumes.
	expectedCharsPerSecond = 10.0
	tooFastRatio           = 0.5
	tooSlowRatio           = 1.5
	tooSlowFloorSeconds    = 10
)

const noEmotionData = "no emotion data"

// BuildSummaries fuses each answer with the emotion samples sharing its
// question number. Answers must already be ordered by question number.
func BuildSummaries(answers []repository.AnswerRecord, samples []repository.EmotionSample) []oracle.QuestionSummary {
	byQuestion := make(map[int][]repository.EmotionSample)
	for _, s := range samples {
		byQuestion[s.QuestionNumber] = append(byQuestion[s.QuestionNumber], s)
	}
	summaries := make([]oracle.QuestionSummary, 0, len(answers))
	for _, a := range answers {
		summaries = append(summaries, oracle.QuestionSummary{
			QuestionNumber: a.QuestionNumber,
			Question:       a.QuestionText,
			Answer:         a.AnswerText,
			EmotionSummary: SummarizeEmotion(byQuestion[a.QuestionNumber]),
		})
	}
	return summaries
}

// SummarizeEmotion renders the average score of the samples and the emotion
// named most often in their reasons. Ties go to the emotion seen first.
func SummarizeEmotion(samples []repository.EmotionSample) string {
	if len(samples) == 0 {
		return noEmotionData
	}
	var sum float64
	counts := make(map[string]int)
	var order []string
	for _, s := range samples {
		sum += s.Score
		for _, name := range emotion.ReasonEmotions(s.Reason) {
			if _, ok := counts[name]; !ok {
				order = append(order, name)
			}
			counts[name]++
		}
	}
	avg := sum / float64(len(samples))
	dominant := ""
	for _, name := range order {
		if dominant == "" || counts[name] > counts[dominant] {
			dominant = name
		}
	}
	if dominant == "" {
		return fmt.Sprintf("average score %.1f", avg)
	}
	return fmt.Sprintf("average score %.1f, dominant emotion %s", avg, dominant)
}

// ClassifyPacing compares the time taken to answer with the time the answer
// length suggests. Answers without a recorded duration are left unclassified.
func ClassifyPacing(answerText string, elapsedSeconds *int) repository.Pacing {
	if elapsedSeconds == nil {
		return ""
	}
	actual := float64(*elapsedSeconds)
	expected := float64(utf8.RuneCountInString(answerText)) / expectedCharsPerSecond
	switch {
	case actual < tooFastRatio*expected:
		return repository.PacingTooFast
	case actual > tooSlowRatio*expected && actual > tooSlowFloorSeconds:
		return repository.PacingTooSlow
	default:
		return repository.PacingAppropriate
	}
}

func chunkSummaries(summaries []oracle.QuestionSummary, size int) [][]oracle.QuestionSummary {
	if size <= 0 {
		size = defaultBatchSize
	}
	var chunks [][]oracle.QuestionSummary
	for start := 0; start < len(summaries); start += size {
		end := min(start+size, len(summaries))
		chunks = append(chunks, summaries[start:end])
	}
	return chunks
}
