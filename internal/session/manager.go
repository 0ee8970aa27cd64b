package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

// EvaluationScheduler hands a closed session to the evaluation workers
// without waiting for the run.
type EvaluationScheduler interface {
	Schedule(sessionID int64)
}

// ScoreResetter owns the running sentiment score and serializes writes to it.
type ScoreResetter interface {
	ResetScore(ctx context.Context, sessionID int64) error
}

type Manager struct {
	repo      repository.Repository
	scheduler EvaluationScheduler
	scores    ScoreResetter
	now       func() time.Time
}

func NewManager(repo repository.Repository, scheduler EvaluationScheduler, scores ScoreResetter) *Manager {
	return &Manager{
		repo:      repo,
		scheduler: scheduler,
		scores:    scores,
		now:       time.Now,
	}
}

func (m *Manager) StartSession(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, apperrors.Validation("user id is required")
	}
	profile, err := m.repo.GetUserProfile(ctx, userID)
	if err != nil {
		return 0, apperrors.Store("get user profile", err)
	}
	if profile == nil {
		return 0, apperrors.NotFound("user %d has no profile", userID)
	}

	created, err := m.repo.CreateSession(ctx, repository.CreateSessionInput{
		UserID:         userID,
		LearningField:  profile.LearningField,
		StartedAt:      m.now(),
		SentimentScore: repository.SentimentScoreCeiling,
	})
	if err != nil {
		slog.Error("failed to create session in repository", "error", err, "user_id", userID)
		return 0, apperrors.Store("create session", err)
	}
	slog.Info("interview session started", "session_id", created.ID, "user_id", userID, "learning_field", created.LearningField)
	return created.ID, nil
}

// FinishSession closes the user's most recent open session and schedules its
// evaluation. A second finish without a new start fails with ErrNotFound.
func (m *Manager) FinishSession(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, apperrors.Validation("user id is required")
	}
	sess, err := m.repo.GetOpenSessionByUser(ctx, userID)
	if err != nil {
		return 0, apperrors.Store("get open session", err)
	}
	if sess == nil {
		return 0, apperrors.NotFound("user %d has no open session", userID)
	}

	closed, err := m.repo.CloseSession(ctx, repository.CloseSessionInput{
		SessionID: sess.ID,
		EndedAt:   m.now(),
	})
	if err != nil {
		slog.Error("failed to close session", "error", err, "session_id", sess.ID)
		return 0, apperrors.Store("close session", err)
	}
	if !closed {
		slog.Warn("session was closed concurrently; not scheduling evaluation again", "session_id", sess.ID, "user_id", userID)
		return 0, apperrors.NotFound("user %d has no open session", userID)
	}
	slog.Info("interview session finished", "session_id", sess.ID, "user_id", userID)

	m.scheduler.Schedule(sess.ID)
	return sess.ID, nil
}

// ResetEmotionScore puts the running score back at the ceiling so the next
// question starts from a neutral baseline.
func (m *Manager) ResetEmotionScore(ctx context.Context, sessionID int64) error {
	if sessionID <= 0 {
		return apperrors.Validation("session id is required")
	}
	return m.scores.ResetScore(ctx, sessionID)
}

type RecordAnswerInput struct {
	SessionID      int64
	QuestionNumber int
	QuestionText   string
	AnswerText     string
	ElapsedSeconds *int
}

func (in RecordAnswerInput) validate() error {
	switch {
	case in.SessionID <= 0:
		return apperrors.Validation("session id is required")
	case in.QuestionNumber < 1:
		return apperrors.Validation("question number must be 1 or greater, got %d", in.QuestionNumber)
	case strings.TrimSpace(in.QuestionText) == "":
		return apperrors.Validation("question text is required")
	case strings.TrimSpace(in.AnswerText) == "":
		return apperrors.Validation("answer text is required")
	case in.ElapsedSeconds != nil && *in.ElapsedSeconds < 0:
		return apperrors.Validation("elapsed seconds must not be negative")
	}
	return nil
}

// RecordAnswer stores one answer of an open session, replacing any earlier
// answer to the same question.
func (m *Manager) RecordAnswer(ctx context.Context, input RecordAnswerInput) error {
	if err := input.validate(); err != nil {
		return err
	}
	sess, err := m.repo.GetSession(ctx, input.SessionID)
	if err != nil {
		return apperrors.Store("get session", err)
	}
	if sess == nil || !sess.IsOpen() {
		return apperrors.NotFound("open session %d", input.SessionID)
	}
	if err := m.repo.UpsertAnswer(ctx, repository.UpsertAnswerInput{
		SessionID:      input.SessionID,
		QuestionNumber: input.QuestionNumber,
		QuestionText:   input.QuestionText,
		AnswerText:     input.AnswerText,
		ElapsedSeconds: input.ElapsedSeconds,
	}); err != nil {
		slog.Error("failed to save answer", "error", err, "session_id", input.SessionID, "question_number", input.QuestionNumber)
		return apperrors.Store("upsert answer", err)
	}
	return nil
}
