package evaluation

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

// Component weights of the summary path. They sum to 1.
const (
	verbalWeight = 0.4
	vitalWeight  = 0.3
	visualWeight = 0.2
	voiceWeight  = 0.1
)

// NeutralSubScore stands in for a component the summary answers say nothing about.
const NeutralSubScore = 70

const insufficientDataFeedback = "insufficient data: no answers were available, so neutral scores were used"

type Category string

const (
	CategoryVerbal Category = "verbal"
	CategoryVital  Category = "vital"
	CategoryVisual Category = "visual"
	CategoryVoice  Category = "voice"
)

func (c Category) valid() bool {
	switch c {
	case CategoryVerbal, CategoryVital, CategoryVisual, CategoryVoice:
		return true
	}
	return false
}

type Finalizer struct {
	repo repository.Repository
}

func NewFinalizer(repo repository.Repository) *Finalizer {
	return &Finalizer{repo: repo}
}

type FinalizeInput struct {
	SessionID int64
	Verdict   oracle.SessionEvaluation
	Questions []oracle.QuestionEvaluation
	// Pacing is keyed by question number.
	Pacing map[int]repository.Pacing
}

// Finalize writes the session result and every per-question evaluation in
// one store call. Re-running overwrites the previous result.
func (f *Finalizer) Finalize(ctx context.Context, in FinalizeInput) (*repository.EvaluationResult, error) {
	result := repository.EvaluationResult{
		SessionID:     in.SessionID,
		VerbalScore:   in.Verdict.Scores.Verbal,
		VoiceScore:    in.Verdict.Scores.Voice,
		VisualScore:   in.Verdict.Scores.Visual,
		VitalScore:    in.Verdict.Scores.Vital,
		TotalScore:    in.Verdict.TotalScore,
		FinalFeedback: in.Verdict.FinalFeedback,
		Strengths:     in.Verdict.Strengths,
		ReasonSummary: strings.Join(in.Verdict.Weaknesses, ", "),
	}
	updates := make([]repository.AnswerEvaluationUpdate, 0, len(in.Questions))
	for _, q := range in.Questions {
		updates = append(updates, repository.AnswerEvaluationUpdate{
			QuestionNumber: q.QuestionNumber,
			Score:          q.Score,
			Feedback:       q.Feedback,
			Strengths:      q.Strengths,
			Improvements:   q.Improvements,
			Pacing:         in.Pacing[q.QuestionNumber],
		})
	}
	if err := f.repo.SaveEvaluation(ctx, repository.SaveEvaluationInput{Result: result, Answers: updates}); err != nil {
		return nil, apperrors.Store("save evaluation", err)
	}
	return &result, nil
}

// ComputeDelta compares total with the user's latest evaluated session before
// sessionID. A nil delta means there is no baseline, which differs from zero.
func (f *Finalizer) ComputeDelta(ctx context.Context, userID, sessionID int64, total int) (*int, error) {
	prior, err := f.repo.GetPriorEvaluationResult(ctx, userID, sessionID)
	if err != nil {
		return nil, apperrors.Store("get prior evaluation result", err)
	}
	if prior == nil {
		return nil, nil
	}
	delta := total - prior.TotalScore
	return &delta, nil
}

type SummaryAnswer struct {
	Category Category
	Score    int
	Feedback string
}

// WeightedTotal rounds the weighted sum of the four components.
func WeightedTotal(s oracle.SubScores) int {
	sum := verbalWeight*float64(s.Verbal) +
		vitalWeight*float64(s.Vital) +
		visualWeight*float64(s.Visual) +
		voiceWeight*float64(s.Voice)
	return int(math.Round(sum))
}

// FinalizeSummary scores a session from per-category summary answers instead
// of the full pipeline. Categories without answers get NeutralSubScore.
func (f *Finalizer) FinalizeSummary(ctx context.Context, sessionID int64, answers []SummaryAnswer) (*repository.EvaluationResult, error) {
	for i, a := range answers {
		if !a.Category.valid() {
			return nil, apperrors.Validation("answer %d has unknown category %q", i, a.Category)
		}
		if a.Score < 0 || a.Score > 100 {
			return nil, apperrors.Validation("answer %d score must be within 0-100, got %d", i, a.Score)
		}
	}
	sess, err := f.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Store("get session", err)
	}
	if sess == nil {
		return nil, apperrors.NotFound("session %d", sessionID)
	}

	sums := make(map[Category]int)
	counts := make(map[Category]int)
	var feedback []string
	for _, a := range answers {
		sums[a.Category] += a.Score
		counts[a.Category]++
		if fb := strings.TrimSpace(a.Feedback); fb != "" {
			feedback = append(feedback, fb)
		}
	}
	avg := func(c Category) int {
		if counts[c] == 0 {
			return NeutralSubScore
		}
		return int(math.Round(float64(sums[c]) / float64(counts[c])))
	}
	scores := oracle.SubScores{
		Verbal: avg(CategoryVerbal),
		Vital:  avg(CategoryVital),
		Visual: avg(CategoryVisual),
		Voice:  avg(CategoryVoice),
	}

	finalFeedback := strings.Join(feedback, " ")
	if len(answers) == 0 {
		finalFeedback = insufficientDataFeedback
	}
	result := repository.EvaluationResult{
		SessionID:     sessionID,
		VerbalScore:   scores.Verbal,
		VoiceScore:    scores.Voice,
		VisualScore:   scores.Visual,
		VitalScore:    scores.Vital,
		TotalScore:    WeightedTotal(scores),
		FinalFeedback: finalFeedback,
		Strengths:     strongestCategories(scores),
	}
	if err := f.repo.SaveEvaluation(ctx, repository.SaveEvaluationInput{Result: result}); err != nil {
		return nil, apperrors.Store("save evaluation", err)
	}
	slog.Info("summary evaluation saved", "session_id", sessionID, "answers", len(answers), "total_score", result.TotalScore)
	return &result, nil
}

// strongestCategories lists the components scoring above neutral, best first.
func strongestCategories(s oracle.SubScores) []string {
	type entry struct {
		name  Category
		score int
	}
	entries := []entry{
		{CategoryVerbal, s.Verbal},
		{CategoryVital, s.Vital},
		{CategoryVisual, s.Visual},
		{CategoryVoice, s.Voice},
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].score > entries[j].score })
	out := []string{}
	for _, e := range entries {
		if e.score > NeutralSubScore {
			out = append(out, string(e.name))
		}
	}
	return out
}
