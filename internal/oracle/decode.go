package oracle

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type wireEachScore struct {
	Verbal    *float64 `json:"verbal"`
	Technical *float64 `json:"technical"`
	Attitude  *float64 `json:"attitude"`
	Vitality  *float64 `json:"vitality"`
}

type wireSessionEvaluation struct {
	TotalScore    *float64       `json:"totalScore"`
	EachScore     *wireEachScore `json:"eachScore"`
	Strengths     []string       `json:"strengths"`
	Weaknesses    []string       `json:"weaknesses"`
	FinalFeedback *string        `json:"finalFeedback"`
}

type wireQuestionEvaluation struct {
	QuestionNumber *int     `json:"question_number"`
	Score          *float64 `json:"score"`
	Feedback       *string  `json:"feedback"`
	Strengths      []string `json:"strengths"`
	Improvements   []string `json:"improvements"`
}

type wireChunkEvaluation struct {
	SessionEvaluation   *wireSessionEvaluation   `json:"sessionEvaluation"`
	QuestionEvaluations []wireQuestionEvaluation `json:"questionEvaluations"`
}

// DecodeChunkEvaluation parses the oracle's JSON verdict. Missing required
// fields and out-of-range scores are errors; nothing is defaulted.
func DecodeChunkEvaluation(content string) (*ChunkEvaluation, error) {
	var w wireChunkEvaluation
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &w); err != nil {
		return nil, fmt.Errorf("decode oracle response: %w", err)
	}
	if w.SessionEvaluation == nil {
		return nil, fmt.Errorf("sessionEvaluation is missing")
	}
	sess, err := w.SessionEvaluation.toDomain()
	if err != nil {
		return nil, fmt.Errorf("sessionEvaluation: %w", err)
	}
	if len(w.QuestionEvaluations) == 0 {
		return nil, fmt.Errorf("questionEvaluations is missing")
	}
	questions := make([]QuestionEvaluation, 0, len(w.QuestionEvaluations))
	for i, q := range w.QuestionEvaluations {
		qe, err := q.toDomain()
		if err != nil {
			return nil, fmt.Errorf("questionEvaluations[%d]: %w", i, err)
		}
		questions = append(questions, qe)
	}
	return &ChunkEvaluation{Session: sess, Questions: questions}, nil
}

func (w *wireSessionEvaluation) toDomain() (SessionEvaluation, error) {
	total, err := requiredScore("totalScore", w.TotalScore)
	if err != nil {
		return SessionEvaluation{}, err
	}
	if w.EachScore == nil {
		return SessionEvaluation{}, fmt.Errorf("eachScore is missing")
	}
	verbal, err := requiredScore("eachScore.verbal", w.EachScore.Verbal)
	if err != nil {
		return SessionEvaluation{}, err
	}
	vital, err := requiredScore("eachScore.technical", w.EachScore.Technical)
	if err != nil {
		return SessionEvaluation{}, err
	}
	voice, err := requiredScore("eachScore.attitude", w.EachScore.Attitude)
	if err != nil {
		return SessionEvaluation{}, err
	}
	visual, err := requiredScore("eachScore.vitality", w.EachScore.Vitality)
	if err != nil {
		return SessionEvaluation{}, err
	}
	if w.FinalFeedback == nil {
		return SessionEvaluation{}, fmt.Errorf("finalFeedback is missing")
	}
	return SessionEvaluation{
		TotalScore:    total,
		Scores:        SubScores{Verbal: verbal, Vital: vital, Visual: visual, Voice: voice},
		Strengths:     w.Strengths,
		Weaknesses:    w.Weaknesses,
		FinalFeedback: *w.FinalFeedback,
	}, nil
}

func (w *wireQuestionEvaluation) toDomain() (QuestionEvaluation, error) {
	if w.QuestionNumber == nil {
		return QuestionEvaluation{}, fmt.Errorf("question_number is missing")
	}
	score, err := requiredScore("score", w.Score)
	if err != nil {
		return QuestionEvaluation{}, err
	}
	if w.Feedback == nil {
		return QuestionEvaluation{}, fmt.Errorf("feedback is missing")
	}
	return QuestionEvaluation{
		QuestionNumber: *w.QuestionNumber,
		Score:          score,
		Feedback:       *w.Feedback,
		Strengths:      w.Strengths,
		Improvements:   w.Improvements,
	}, nil
}

func requiredScore(name string, v *float64) (int, error) {
	if v == nil {
		return 0, fmt.Errorf("%s is missing", name)
	}
	if *v < 0 || *v > 100 || math.IsNaN(*v) {
		return 0, fmt.Errorf("%s out of range: %v", name, *v)
	}
	return int(math.Round(*v)), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
