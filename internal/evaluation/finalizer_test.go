package evaluation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/foxseedlab/mogimensetsu/internal/testutil"
)

func TestComputeDelta(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	f := NewFinalizer(repo)
	ctx := context.Background()

	first := seedSession(t, repo, 7, 1)
	delta, err := f.ComputeDelta(ctx, 7, first, 70)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if delta != nil {
		t.Fatalf("expected nil delta for first session, got %d", *delta)
	}
	repo.PutResult(repository.EvaluationResult{SessionID: first, TotalScore: 70})

	other := seedSession(t, repo, 8, 1)
	repo.PutResult(repository.EvaluationResult{SessionID: other, TotalScore: 10})

	second := seedSession(t, repo, 7, 1)
	delta, err = f.ComputeDelta(ctx, 7, second, 64)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if delta == nil || *delta != -6 {
		t.Fatalf("expected delta -6, got %v", delta)
	}

	// The baseline is the latest earlier session, not the first one.
	repo.PutResult(repository.EvaluationResult{SessionID: second, TotalScore: 64})
	third := seedSession(t, repo, 7, 1)
	delta, _ = f.ComputeDelta(ctx, 7, third, 64)
	if delta == nil || *delta != 0 {
		t.Fatalf("expected zero delta, got %v", delta)
	}
}

func TestWeightedTotal(t *testing.T) {
	tests := []struct {
		scores oracle.SubScores
		want   int
	}{
		{oracle.SubScores{Verbal: 70, Vital: 70, Visual: 70, Voice: 70}, 70},
		{oracle.SubScores{Verbal: 100, Vital: 0, Visual: 0, Voice: 0}, 40},
		{oracle.SubScores{Verbal: 80, Vital: 70, Visual: 65, Voice: 90}, 75},
		{oracle.SubScores{Verbal: 0, Vital: 0, Visual: 0, Voice: 10}, 1},
	}
	for _, tt := range tests {
		if got := WeightedTotal(tt.scores); got != tt.want {
			t.Fatalf("WeightedTotal(%+v) = %d, want %d", tt.scores, got, tt.want)
		}
	}
}

func TestFinalizeSummary_NoAnswersUsesNeutralScores(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	id := seedSession(t, repo, 7, 0)

	res, err := NewFinalizer(repo).FinalizeSummary(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.TotalScore != NeutralSubScore || res.VerbalScore != NeutralSubScore || res.VoiceScore != NeutralSubScore {
		t.Fatalf("expected neutral scores, got %+v", res)
	}
	if res.FinalFeedback != insufficientDataFeedback {
		t.Fatalf("unexpected feedback: %q", res.FinalFeedback)
	}
	stored, _ := repo.GetEvaluationResult(context.Background(), id)
	if stored == nil || stored.TotalScore != NeutralSubScore {
		t.Fatalf("expected stored result, got %+v", stored)
	}
}

func TestFinalizeSummary_AveragesPerCategory(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	id := seedSession(t, repo, 7, 0)

	res, err := NewFinalizer(repo).FinalizeSummary(context.Background(), id, []SummaryAnswer{
		{Category: CategoryVerbal, Score: 80, Feedback: "Structured answers."},
		{Category: CategoryVerbal, Score: 90},
		{Category: CategoryVital, Score: 60, Feedback: "Slow on the design question."},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	// verbal 85, vital 60, visual and voice default to 70: 34 + 18 + 14 + 7 = 73
	if res.VerbalScore != 85 || res.VitalScore != 60 || res.VisualScore != 70 || res.VoiceScore != 70 {
		t.Fatalf("unexpected sub-scores: %+v", res)
	}
	if res.TotalScore != 73 {
		t.Fatalf("expected total 73, got %d", res.TotalScore)
	}
	if res.FinalFeedback != "Structured answers. Slow on the design question." {
		t.Fatalf("unexpected feedback: %q", res.FinalFeedback)
	}
	if !reflect.DeepEqual(res.Strengths, []string{"verbal"}) {
		t.Fatalf("unexpected strengths: %v", res.Strengths)
	}
}

func TestFinalizeSummary_Validation(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	f := NewFinalizer(repo)

	_, err := f.FinalizeSummary(context.Background(), 1, []SummaryAnswer{{Category: "charisma", Score: 50}})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation for unknown category, got %v", err)
	}
	_, err = f.FinalizeSummary(context.Background(), 1, []SummaryAnswer{{Category: CategoryVoice, Score: 101}})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation for score out of range, got %v", err)
	}
	_, err = f.FinalizeSummary(context.Background(), 42, nil)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReport(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	ctx := context.Background()
	finalizer := NewFinalizer(repo)
	reporter := NewReporter(repo, finalizer)

	prior := seedSession(t, repo, 7, 1)
	repo.PutResult(repository.EvaluationResult{SessionID: prior, TotalScore: 70})
	id := seedSession(t, repo, 7, 2)

	_, err := reporter.Report(ctx, id)
	var unavailable *ResultUnavailableError
	if !errors.As(err, &unavailable) || unavailable.Status != repository.EvaluationStatusPending {
		t.Fatalf("expected pending result-unavailable error, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected result-unavailable to match ErrNotFound, got %v", err)
	}

	if _, err := newTestOrchestrator(repo, &mockScorer{totals: []int{75}}, 5).Evaluate(ctx, id); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	report, err := reporter.Report(ctx, id)
	if err != nil {
		t.Fatalf("expected report, got %v", err)
	}
	if report.QuestionCount != 2 || report.Result.TotalScore != 75 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.ScoreChange == nil || *report.ScoreChange != 5 {
		t.Fatalf("expected score change 5, got %v", report.ScoreChange)
	}
	if report.Session.EvaluationStatus != repository.EvaluationStatusSucceeded {
		t.Fatalf("unexpected status: %s", report.Session.EvaluationStatus)
	}

	if _, err := reporter.Report(ctx, 999); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
