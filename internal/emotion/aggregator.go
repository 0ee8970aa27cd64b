package emotion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/classifier"
	"github.com/foxseedlab/mogimensetsu/internal/metrics"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

var ErrClassifierDisabled = errors.New("emotion classifier is not configured")

type Aggregator struct {
	repo       repository.Repository
	notifier   notify.Notifier
	classifier classifier.Classifier
	locks      *sessionLocks
}

// NewAggregator builds an aggregator; cls may be nil when frames arrive
// already classified.
func NewAggregator(repo repository.Repository, notifier notify.Notifier, cls classifier.Classifier) *Aggregator {
	return &Aggregator{
		repo:       repo,
		notifier:   notifier,
		classifier: cls,
		locks:      newSessionLocks(),
	}
}

type FrameInput struct {
	SessionID      int64
	QuestionNumber int
	ScoreDelta     float64
	Contributors   map[string]float64
}

type FrameResult struct {
	Applied bool
	Score   float64
	Reason  string
}

// RecordFrame applies one classified frame to the session's running score.
// A zero delta touches nothing. The read-modify-write is serialized per session.
func (a *Aggregator) RecordFrame(ctx context.Context, in FrameInput) (FrameResult, error) {
	if in.SessionID <= 0 {
		return FrameResult{}, apperrors.Validation("session id is required")
	}
	if in.QuestionNumber < 1 {
		return FrameResult{}, apperrors.Validation("question number must be 1 or greater, got %d", in.QuestionNumber)
	}
	if in.ScoreDelta == 0 {
		metrics.EmotionFrames.WithLabelValues("skipped").Inc()
		return FrameResult{}, nil
	}

	unlock := a.locks.lock(in.SessionID)
	sess, err := a.repo.GetSession(ctx, in.SessionID)
	if err != nil {
		unlock()
		metrics.EmotionFrames.WithLabelValues("failed").Inc()
		return FrameResult{}, apperrors.Store("get session", err)
	}
	if sess == nil || !sess.IsOpen() {
		unlock()
		metrics.EmotionFrames.WithLabelValues("failed").Inc()
		return FrameResult{}, apperrors.NotFound("open session %d", in.SessionID)
	}

	score := Clamp(sess.SentimentScore + in.ScoreDelta)
	reason := FormatReason(in.Contributors)
	if err := a.repo.SaveEmotionFrame(ctx, repository.SaveEmotionFrameInput{
		SessionID:      in.SessionID,
		QuestionNumber: in.QuestionNumber,
		Reason:         reason,
		Score:          score,
	}); err != nil {
		unlock()
		metrics.EmotionFrames.WithLabelValues("failed").Inc()
		if errors.Is(err, repository.ErrSessionClosed) {
			return FrameResult{}, apperrors.NotFound("open session %d", in.SessionID)
		}
		slog.Error("failed to save emotion frame", "error", err, "session_id", in.SessionID, "question_number", in.QuestionNumber)
		return FrameResult{}, apperrors.Store("save emotion frame", err)
	}
	unlock()

	metrics.EmotionFrames.WithLabelValues("applied").Inc()
	slog.Debug("emotion frame applied", "session_id", in.SessionID, "question_number", in.QuestionNumber, "delta", in.ScoreDelta, "score", score)
	a.notifier.Notify(ctx, sess.UserID, notify.SentimentUpdated(in.SessionID, score))
	return FrameResult{Applied: true, Score: score, Reason: reason}, nil
}

// ResetScore puts the running score back at the ceiling. It shares the
// per-session lock with RecordFrame so a frame in flight cannot write a stale
// score over the reset.
func (a *Aggregator) ResetScore(ctx context.Context, sessionID int64) error {
	unlock := a.locks.lock(sessionID)
	defer unlock()

	sess, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return apperrors.Store("get session", err)
	}
	if sess == nil {
		return apperrors.NotFound("session %d", sessionID)
	}
	if err := a.repo.UpdateSentimentScore(ctx, sessionID, repository.SentimentScoreCeiling); err != nil {
		return apperrors.Store("reset sentiment score", err)
	}
	slog.Debug("sentiment score reset", "session_id", sessionID)
	return nil
}

// AnalyzeFrame classifies a raw frame and records the outcome.
func (a *Aggregator) AnalyzeFrame(ctx context.Context, sessionID int64, questionNumber int, frame []byte) (FrameResult, error) {
	if a.classifier == nil {
		return FrameResult{}, ErrClassifierDisabled
	}
	if len(frame) == 0 {
		return FrameResult{}, apperrors.Validation("frame is empty")
	}
	c, err := a.classifier.Classify(ctx, frame)
	if err != nil {
		metrics.EmotionFrames.WithLabelValues("failed").Inc()
		return FrameResult{}, fmt.Errorf("classify frame: %w", err)
	}
	return a.RecordFrame(ctx, FrameInput{
		SessionID:      sessionID,
		QuestionNumber: questionNumber,
		ScoreDelta:     c.ScoreDelta,
		Contributors:   c.Contributors,
	})
}

func Clamp(score float64) float64 {
	if score < repository.SentimentScoreFloor {
		return repository.SentimentScoreFloor
	}
	if score > repository.SentimentScoreCeiling {
		return repository.SentimentScoreCeiling
	}
	return score
}
