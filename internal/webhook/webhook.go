package webhook

import "context"

type EvaluationPayload struct {
	SessionID     int64    `json:"session_id"`
	UserID        int64    `json:"user_id"`
	LearningField string   `json:"learning_field"`
	VerbalScore   int      `json:"verbal_score"`
	VoiceScore    int      `json:"voice_score"`
	VisualScore   int      `json:"visual_score"`
	VitalScore    int      `json:"vital_score"`
	TotalScore    int      `json:"total_score"`
	ScoreChange   *int     `json:"score_change"`
	FinalFeedback string   `json:"final_feedback"`
	Strengths     []string `json:"strengths"`
	ReasonSummary string   `json:"reason_summary"`
	QuestionCount int      `json:"question_count"`
}

type Sender interface {
	SendEvaluation(ctx context.Context, payload EvaluationPayload) error
}
