package evaluation

import (
	"context"
	"fmt"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

// ResultUnavailableError is returned while a session has no stored result.
// Status tells a poller whether to keep waiting.
type ResultUnavailableError struct {
	SessionID int64
	Status    repository.EvaluationStatus
}

func (e *ResultUnavailableError) Error() string {
	return fmt.Sprintf("no evaluation result for session %d (status %s)", e.SessionID, e.Status)
}

func (e *ResultUnavailableError) Is(target error) bool {
	return target == apperrors.ErrNotFound
}

type Report struct {
	Session       repository.Session
	Result        repository.EvaluationResult
	Answers       []repository.AnswerRecord
	QuestionCount int
	ScoreChange   *int
}

type Reporter struct {
	repo      repository.Repository
	finalizer *Finalizer
}

func NewReporter(repo repository.Repository, finalizer *Finalizer) *Reporter {
	return &Reporter{repo: repo, finalizer: finalizer}
}

func (r *Reporter) Report(ctx context.Context, sessionID int64) (*Report, error) {
	sess, err := r.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Store("get session", err)
	}
	if sess == nil {
		return nil, apperrors.NotFound("session %d", sessionID)
	}
	result, err := r.repo.GetEvaluationResult(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Store("get evaluation result", err)
	}
	if result == nil {
		return nil, &ResultUnavailableError{SessionID: sessionID, Status: sess.EvaluationStatus}
	}
	answers, err := r.repo.ListAnswersBySession(ctx, sessionID)
	if err != nil {
		return nil, apperrors.Store("list answers", err)
	}
	change, err := r.finalizer.ComputeDelta(ctx, sess.UserID, sessionID, result.TotalScore)
	if err != nil {
		return nil, err
	}
	return &Report{
		Session:       *sess,
		Result:        *result,
		Answers:       answers,
		QuestionCount: len(answers),
		ScoreChange:   change,
	}, nil
}
