package repository

import (
	"context"
	"errors"
	"time"
)

// ErrSessionClosed is returned by SaveEmotionFrame when the session ended
// before the frame was written.
var ErrSessionClosed = errors.New("session is closed")

type CreateSessionInput struct {
	UserID         int64
	LearningField  string
	StartedAt      time.Time
	SentimentScore float64
}

type CloseSessionInput struct {
	SessionID int64
	EndedAt   time.Time
}

type UpsertAnswerInput struct {
	SessionID      int64
	QuestionNumber int
	QuestionText   string
	AnswerText     string
	ElapsedSeconds *int
}

type SaveEmotionFrameInput struct {
	SessionID      int64
	QuestionNumber int
	Reason         string
	Score          float64
}

type AnswerEvaluationUpdate struct {
	QuestionNumber int
	Score          int
	Feedback       string
	Strengths      []string
	Improvements   []string
	Pacing         Pacing
}

// SaveEvaluationInput is written atomically: the result upsert, every answer
// update and the succeeded status land together or not at all.
type SaveEvaluationInput struct {
	Result  EvaluationResult
	Answers []AnswerEvaluationUpdate
}

type SessionRepository interface {
	GetUserProfile(ctx context.Context, userID int64) (*UserProfile, error)
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetSession(ctx context.Context, sessionID int64) (*Session, error)
	GetOpenSessionByUser(ctx context.Context, userID int64) (*Session, error)
	// CloseSession sets the end time and marks evaluation pending. It reports
	// false when the session was already closed.
	CloseSession(ctx context.Context, input CloseSessionInput) (bool, error)
	UpdateSentimentScore(ctx context.Context, sessionID int64, score float64) error
	UpdateEvaluationStatus(ctx context.Context, sessionID int64, status EvaluationStatus) error
}

type AnswerRepository interface {
	UpsertAnswer(ctx context.Context, input UpsertAnswerInput) error
	ListAnswersBySession(ctx context.Context, sessionID int64) ([]AnswerRecord, error)
}

type EmotionRepository interface {
	// SaveEmotionFrame stores the new running score and its sample. It fails
	// with ErrSessionClosed once the session has ended.
	SaveEmotionFrame(ctx context.Context, input SaveEmotionFrameInput) error
	ListEmotionSamplesBySession(ctx context.Context, sessionID int64) ([]EmotionSample, error)
}

type EvaluationRepository interface {
	SaveEvaluation(ctx context.Context, input SaveEvaluationInput) error
	GetEvaluationResult(ctx context.Context, sessionID int64) (*EvaluationResult, error)
	GetPriorEvaluationResult(ctx context.Context, userID, sessionID int64) (*EvaluationResult, error)
}

type Repository interface {
	SessionRepository
	AnswerRepository
	EmotionRepository
	EvaluationRepository
}
