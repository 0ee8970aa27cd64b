package httpapi

import (
	"context"
	"encoding/base64"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/foxseedlab/mogimensetsu/external/realtime"
	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/foxseedlab/mogimensetsu/internal/session"
	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

var dataURLPrefix = regexp.MustCompile(`^data:image/[^;]+;base64,`)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	manager    *session.Manager
	aggregator *emotion.Aggregator
	finalizer  *evaluation.Finalizer
	reporter   *evaluation.Reporter
	hub        *realtime.Hub
	db         Pinger
}

func NewHandler(manager *session.Manager, aggregator *emotion.Aggregator, finalizer *evaluation.Finalizer, reporter *evaluation.Reporter, hub *realtime.Hub, db Pinger) *Handler {
	return &Handler{
		manager:    manager,
		aggregator: aggregator,
		finalizer:  finalizer,
		reporter:   reporter,
		hub:        hub,
		db:         db,
	}
}

type userRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	id, err := h.manager.StartSession(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	created(c, gin.H{"session_id": id})
}

func (h *Handler) FinishSession(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	id, err := h.manager.FinishSession(c.Request.Context(), req.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, gin.H{"session_id": id, "evaluation_status": repository.EvaluationStatusPending})
}

type answerRequest struct {
	QuestionNumber int    `json:"question_number" binding:"required"`
	QuestionText   string `json:"question_text" binding:"required"`
	AnswerText     string `json:"answer_text" binding:"required"`
	ElapsedSeconds *int   `json:"elapsed_seconds"`
}

func (h *Handler) RecordAnswer(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var req answerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	err := h.manager.RecordAnswer(c.Request.Context(), session.RecordAnswerInput{
		SessionID:      sessionID,
		QuestionNumber: req.QuestionNumber,
		QuestionText:   req.QuestionText,
		AnswerText:     req.AnswerText,
		ElapsedSeconds: req.ElapsedSeconds,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, nil)
}

func (h *Handler) ResetEmotion(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	if err := h.manager.ResetEmotionScore(c.Request.Context(), sessionID); err != nil {
		writeError(c, err)
		return
	}
	success(c, gin.H{"score": repository.SentimentScoreCeiling})
}

// frameRequest carries either a raw image for the classifier or a frame the
// caller already classified.
type frameRequest struct {
	QuestionNumber int                `json:"question_number" binding:"required"`
	Image          string             `json:"image"`
	ScoreDelta     *float64           `json:"score_delta"`
	Contributors   map[string]float64 `json:"contributors"`
}

func (h *Handler) RecordFrame(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var req frameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	var (
		res emotion.FrameResult
		err error
	)
	switch {
	case req.Image != "":
		frame, decodeErr := base64.StdEncoding.DecodeString(dataURLPrefix.ReplaceAllString(req.Image, ""))
		if decodeErr != nil {
			fail(c, http.StatusBadRequest, "image is not valid base64", nil)
			return
		}
		res, err = h.aggregator.AnalyzeFrame(c.Request.Context(), sessionID, req.QuestionNumber, frame)
	case req.ScoreDelta != nil:
		res, err = h.aggregator.RecordFrame(c.Request.Context(), emotion.FrameInput{
			SessionID:      sessionID,
			QuestionNumber: req.QuestionNumber,
			ScoreDelta:     *req.ScoreDelta,
			Contributors:   req.Contributors,
		})
	default:
		err = apperrors.Validation("either image or score_delta is required")
	}
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, gin.H{"applied": res.Applied, "score": res.Score, "reason": res.Reason})
}

type summaryEvaluationRequest struct {
	Answers []struct {
		Category string `json:"category" binding:"required"`
		Score    int    `json:"score"`
		Feedback string `json:"feedback"`
	} `json:"answers"`
}

func (h *Handler) SummaryEvaluation(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	var req summaryEvaluationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error(), nil)
		return
	}
	answers := make([]evaluation.SummaryAnswer, 0, len(req.Answers))
	for _, a := range req.Answers {
		answers = append(answers, evaluation.SummaryAnswer{
			Category: evaluation.Category(a.Category),
			Score:    a.Score,
			Feedback: a.Feedback,
		})
	}
	res, err := h.finalizer.FinalizeSummary(c.Request.Context(), sessionID, answers)
	if err != nil {
		writeError(c, err)
		return
	}
	success(c, resultBody(res))
}

func (h *Handler) GetResult(c *gin.Context) {
	sessionID, ok := sessionIDParam(c)
	if !ok {
		return
	}
	report, err := h.reporter.Report(c.Request.Context(), sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	body := resultBody(&report.Result)
	body["user_id"] = report.Session.UserID
	body["position"] = report.Session.LearningField
	body["interview_date"] = report.Session.StartedAt
	if report.Session.EndedAt != nil {
		body["interview_duration_minutes"] = int(report.Session.EndedAt.Sub(report.Session.StartedAt).Minutes())
	}
	body["question_count"] = report.QuestionCount
	body["score_change"] = report.ScoreChange
	body["evaluation_status"] = report.Session.EvaluationStatus

	questions := make([]gin.H, 0, len(report.Answers))
	for _, a := range report.Answers {
		questions = append(questions, gin.H{
			"question_number": a.QuestionNumber,
			"question":        a.QuestionText,
			"answer":          a.AnswerText,
			"score":           a.Score,
			"feedback":        a.Feedback,
			"strengths":       nonNil(a.Strengths),
			"improvements":    nonNil(a.Improvements),
			"pacing":          a.Pacing,
		})
	}
	body["questions"] = questions
	success(c, body)
}

func (h *Handler) ServeWS(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		fail(c, http.StatusBadRequest, "user_id query parameter is required", nil)
		return
	}
	// The upgrader has already answered the request on failure.
	_ = h.hub.ServeWS(c.Writer, c.Request, userID)
}

func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		fail(c, http.StatusServiceUnavailable, "database unavailable", gin.H{"database": "down"})
		return
	}
	success(c, gin.H{
		"status":           "ok",
		"live_subscribers": h.hub.Subscribers(),
		"components":       gin.H{"database": "up"},
	})
}

func sessionIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "invalid session id", nil)
		return 0, false
	}
	return id, true
}

func resultBody(r *repository.EvaluationResult) gin.H {
	return gin.H{
		"session_id":     r.SessionID,
		"verbal_score":   r.VerbalScore,
		"voice_score":    r.VoiceScore,
		"visual_score":   r.VisualScore,
		"vital_score":    r.VitalScore,
		"total_score":    r.TotalScore,
		"final_feedback": r.FinalFeedback,
		"strengths":      nonNil(r.Strengths),
		"reason_summary": r.ReasonSummary,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
