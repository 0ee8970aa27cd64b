// Package evaluation turns a closed interview session into a stored verdict:
// it fuses answers with emotion samples, scores them chunk by chunk with the
// oracle, persists the result and compares it with the user's history.
package evaluation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/metrics"
	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

const (
	statusUpdateTimeout = 5 * time.Second
	defaultBatchSize    = 5
	defaultChunkTimeout = 90 * time.Second
)

type Orchestrator struct {
	repo         repository.Repository
	scorer       oracle.Scorer
	finalizer    *Finalizer
	batchSize    int
	chunkTimeout time.Duration
}

// NewOrchestrator falls back to the default batch size and chunk timeout for
// non-positive values.
func NewOrchestrator(repo repository.Repository, scorer oracle.Scorer, finalizer *Finalizer, batchSize int, chunkTimeout time.Duration) *Orchestrator {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if chunkTimeout <= 0 {
		chunkTimeout = defaultChunkTimeout
	}
	return &Orchestrator{
		repo:         repo,
		scorer:       scorer,
		finalizer:    finalizer,
		batchSize:    batchSize,
		chunkTimeout: chunkTimeout,
	}
}

// Outcome describes a finished run. Result is nil when the run was skipped.
type Outcome struct {
	Session       repository.Session
	Status        repository.EvaluationStatus
	Result        *repository.EvaluationResult
	Questions     []oracle.QuestionEvaluation
	ScoreChange   *int
	QuestionCount int
}

// Evaluate runs the whole pipeline for one session. A session without
// answers is skipped without error. Any chunk failure aborts the run before
// anything is written and marks the session failed.
func (o *Orchestrator) Evaluate(ctx context.Context, sessionID int64) (*Outcome, error) {
	sess, err := o.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, o.fail(ctx, sessionID, -1, apperrors.Store("get session", err))
	}
	if sess == nil {
		return nil, apperrors.NotFound("session %d", sessionID)
	}
	if sess.IsOpen() {
		return nil, apperrors.Validation("session %d is still open", sessionID)
	}

	answers, err := o.repo.ListAnswersBySession(ctx, sessionID)
	if err != nil {
		return nil, o.fail(ctx, sessionID, -1, apperrors.Store("list answers", err))
	}
	if len(answers) == 0 {
		o.setStatus(ctx, sessionID, repository.EvaluationStatusSkipped)
		metrics.EvaluationRuns.WithLabelValues("skipped").Inc()
		slog.Info("no answers recorded; evaluation skipped", "session_id", sessionID)
		return &Outcome{Session: *sess, Status: repository.EvaluationStatusSkipped}, nil
	}
	samples, err := o.repo.ListEmotionSamplesBySession(ctx, sessionID)
	if err != nil {
		return nil, o.fail(ctx, sessionID, -1, apperrors.Store("list emotion samples", err))
	}

	summaries := BuildSummaries(answers, samples)
	chunks := chunkSummaries(summaries, o.batchSize)
	slog.Info("evaluation started", "session_id", sessionID, "answers", len(answers), "samples", len(samples), "chunks", len(chunks))

	var verdict oracle.SessionEvaluation
	questions := make([]oracle.QuestionEvaluation, 0, len(summaries))
	for i, chunk := range chunks {
		ev, err := o.scoreChunk(ctx, chunk)
		if err != nil {
			return nil, o.fail(ctx, sessionID, i, &apperrors.OracleFailure{SessionID: sessionID, Chunk: i, Err: err})
		}
		questions = append(questions, ev.Questions...)
		verdict = ev.Session
		slog.Debug("chunk evaluated", "session_id", sessionID, "chunk_index", i, "questions", len(chunk))
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].QuestionNumber < questions[j].QuestionNumber })

	pacing := make(map[int]repository.Pacing, len(answers))
	for _, a := range answers {
		pacing[a.QuestionNumber] = ClassifyPacing(a.AnswerText, a.ElapsedSeconds)
	}

	result, err := o.finalizer.Finalize(ctx, FinalizeInput{
		SessionID: sessionID,
		Verdict:   verdict,
		Questions: questions,
		Pacing:    pacing,
	})
	if err != nil {
		return nil, o.fail(ctx, sessionID, -1, err)
	}

	change, err := o.finalizer.ComputeDelta(ctx, sess.UserID, sessionID, result.TotalScore)
	if err != nil {
		slog.Warn("failed to compare with previous session", "error", err, "session_id", sessionID, "user_id", sess.UserID)
	}
	metrics.EvaluationRuns.WithLabelValues("succeeded").Inc()
	slog.Info("evaluation completed", "session_id", sessionID, "total_score", result.TotalScore, "questions", len(questions))

	sess.EvaluationStatus = repository.EvaluationStatusSucceeded
	return &Outcome{
		Session:       *sess,
		Status:        repository.EvaluationStatusSucceeded,
		Result:        result,
		Questions:     questions,
		ScoreChange:   change,
		QuestionCount: len(answers),
	}, nil
}

func (o *Orchestrator) scoreChunk(ctx context.Context, chunk []oracle.QuestionSummary) (*oracle.ChunkEvaluation, error) {
	chunkCtx, cancel := context.WithTimeout(ctx, o.chunkTimeout)
	defer cancel()

	started := time.Now()
	ev, err := o.scorer.ScoreChunk(chunkCtx, chunk)
	if err == nil {
		err = ev.CheckCoverage(chunk)
	}
	outcome := "succeeded"
	if err != nil {
		outcome = "failed"
	}
	metrics.OracleChunkDuration.WithLabelValues(outcome).Observe(time.Since(started).Seconds())
	return ev, err
}

// fail records a failed run. chunkIndex is -1 when no oracle call was involved.
func (o *Orchestrator) fail(ctx context.Context, sessionID int64, chunkIndex int, err error) error {
	o.setStatus(ctx, sessionID, repository.EvaluationStatusFailed)
	metrics.EvaluationRuns.WithLabelValues("failed").Inc()
	attrs := []any{"error", err, "session_id", sessionID}
	if chunkIndex >= 0 {
		attrs = append(attrs, "chunk_index", chunkIndex)
	}
	if errors.Is(err, apperrors.ErrOracle) {
		slog.Error("evaluation aborted by oracle failure", attrs...)
	} else {
		slog.Error("evaluation failed", attrs...)
	}
	return err
}

func (o *Orchestrator) setStatus(ctx context.Context, sessionID int64, status repository.EvaluationStatus) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusUpdateTimeout)
	defer cancel()
	if err := o.repo.UpdateEvaluationStatus(ctx, sessionID, status); err != nil {
		slog.Error("failed to update evaluation status", "error", err, "session_id", sessionID, "status", status)
	}
}
