package repository

import "time"

// Sentiment scores live in [SentimentScoreFloor, SentimentScoreCeiling]; a
// new session and every reset start at the ceiling.
const (
	SentimentScoreFloor   = 0.0
	SentimentScoreCeiling = 100.0
)

type EvaluationStatus string

const (
	EvaluationStatusNone      EvaluationStatus = "none"
	EvaluationStatusPending   EvaluationStatus = "pending"
	EvaluationStatusSucceeded EvaluationStatus = "succeeded"
	EvaluationStatusFailed    EvaluationStatus = "failed"
	EvaluationStatusSkipped   EvaluationStatus = "skipped"
)

type Pacing string

const (
	PacingTooFast     Pacing = "too_fast"
	PacingTooSlow     Pacing = "too_slow"
	PacingAppropriate Pacing = "appropriate"
)

type UserProfile struct {
	UserID            int64
	LearningField     string
	PreferredLanguage string
}

type Session struct {
	ID               int64
	UserID           int64
	LearningField    string
	StartedAt        time.Time
	EndedAt          *time.Time
	SentimentScore   float64
	EvaluationStatus EvaluationStatus
}

func (s *Session) IsOpen() bool {
	return s.EndedAt == nil
}

type AnswerRecord struct {
	SessionID      int64
	QuestionNumber int
	QuestionText   string
	AnswerText     string
	ElapsedSeconds *int
	Score          *int
	Feedback       string
	Strengths      []string
	Improvements   []string
	Pacing         Pacing
}

type EmotionSample struct {
	ID             int64
	SessionID      int64
	QuestionNumber int
	Reason         string
	Score          float64
	CreatedAt      time.Time
}

type EvaluationResult struct {
	SessionID     int64
	VerbalScore   int
	VoiceScore    int
	VisualScore   int
	VitalScore    int
	TotalScore    int
	FinalFeedback string
	Strengths     []string
	ReasonSummary string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
