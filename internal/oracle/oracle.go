// Package oracle describes the external scoring service: what a chunk of
// question summaries looks like going out and what a valid verdict looks
// like coming back.
package oracle

import (
	"context"
	"fmt"
)

// QuestionSummary is one question's fused answer and emotion signal.
type QuestionSummary struct {
	QuestionNumber int    `json:"question_number"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	EmotionSummary string `json:"emotion_summary"`
}

// SubScores are the four session-level components, each 0-100.
type SubScores struct {
	Verbal int
	Vital  int
	Visual int
	Voice  int
}

type SessionEvaluation struct {
	TotalScore    int
	Scores        SubScores
	Strengths     []string
	Weaknesses    []string
	FinalFeedback string
}

type QuestionEvaluation struct {
	QuestionNumber int
	Score          int
	Feedback       string
	Strengths      []string
	Improvements   []string
}

type ChunkEvaluation struct {
	Session   SessionEvaluation
	Questions []QuestionEvaluation
}

type Scorer interface {
	ScoreChunk(ctx context.Context, chunk []QuestionSummary) (*ChunkEvaluation, error)
}

// CheckCoverage verifies that the verdict evaluates every question of the
// chunk exactly once and nothing else.
func (c *ChunkEvaluation) CheckCoverage(chunk []QuestionSummary) error {
	if c == nil {
		return fmt.Errorf("empty chunk evaluation")
	}
	want := make(map[int]bool, len(chunk))
	for _, s := range chunk {
		want[s.QuestionNumber] = false
	}
	for _, q := range c.Questions {
		seen, ok := want[q.QuestionNumber]
		if !ok {
			return fmt.Errorf("evaluation for unexpected question %d", q.QuestionNumber)
		}
		if seen {
			return fmt.Errorf("duplicate evaluation for question %d", q.QuestionNumber)
		}
		want[q.QuestionNumber] = true
	}
	for _, s := range chunk {
		if !want[s.QuestionNumber] {
			return fmt.Errorf("missing evaluation for question %d", s.QuestionNumber)
		}
	}
	return nil
}
