// Package testutil provides an in-memory repository for service tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/repository"
)

// MemoryRepository implements repository.Repository in memory. Writes that the
// postgres adapter runs in one transaction are applied all-or-nothing here too.
type MemoryRepository struct {
	mu       sync.Mutex
	nextID   int64
	profiles map[int64]repository.UserProfile
	sessions map[int64]*repository.Session
	answers  map[int64]map[int]*repository.AnswerRecord
	samples  []repository.EmotionSample
	results  map[int64]*repository.EvaluationResult

	// ReadDelay is slept inside GetSession to widen read-modify-write races.
	ReadDelay time.Duration
	// FirstReadDelay is slept by the first GetSession call only.
	FirstReadDelay time.Duration
	firstReadDone  bool
	// SaveEvaluationErr makes SaveEvaluation fail without writing anything.
	SaveEvaluationErr error
	// ListAnswersErr makes ListAnswersBySession fail.
	ListAnswersErr error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		profiles: make(map[int64]repository.UserProfile),
		sessions: make(map[int64]*repository.Session),
		answers:  make(map[int64]map[int]*repository.AnswerRecord),
		results:  make(map[int64]*repository.EvaluationResult),
	}
}

func (m *MemoryRepository) AddUser(userID int64, learningField string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[userID] = repository.UserProfile{UserID: userID, LearningField: learningField}
}

// PutResult seeds a stored evaluation result, e.g. for a prior session.
func (m *MemoryRepository) PutResult(res repository.EvaluationResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := res
	m.results[res.SessionID] = &cp
}

func (m *MemoryRepository) Samples() []repository.EmotionSample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.EmotionSample(nil), m.samples...)
}

func (m *MemoryRepository) GetUserProfile(_ context.Context, userID int64) (*repository.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *MemoryRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[input.UserID]; !ok {
		return nil, fmt.Errorf("foreign key violation: user %d", input.UserID)
	}
	m.nextID++
	s := &repository.Session{
		ID:               m.nextID,
		UserID:           input.UserID,
		LearningField:    input.LearningField,
		StartedAt:        input.StartedAt,
		SentimentScore:   input.SentimentScore,
		EvaluationStatus: repository.EvaluationStatusNone,
	}
	m.sessions[s.ID] = s
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) GetSession(_ context.Context, sessionID int64) (*repository.Session, error) {
	m.mu.Lock()
	delay := m.ReadDelay
	if !m.firstReadDone {
		m.firstReadDone = true
		delay += m.FirstReadDelay
	}
	m.mu.Unlock()
	if delay > 0 {
		m.mu.Lock()
		s, ok := m.sessions[sessionID]
		var cp repository.Session
		if ok {
			cp = *s
		}
		m.mu.Unlock()
		time.Sleep(delay)
		if !ok {
			return nil, nil
		}
		return &cp, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryRepository) GetOpenSessionByUser(_ context.Context, userID int64) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *repository.Session
	for _, s := range m.sessions {
		if s.UserID != userID || s.EndedAt != nil {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) || (s.StartedAt.Equal(latest.StartedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *MemoryRepository) CloseSession(_ context.Context, input repository.CloseSessionInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[input.SessionID]
	if !ok || s.EndedAt != nil {
		return false, nil
	}
	ended := input.EndedAt
	s.EndedAt = &ended
	s.EvaluationStatus = repository.EvaluationStatusPending
	return true, nil
}

func (m *MemoryRepository) UpdateSentimentScore(_ context.Context, sessionID int64, score float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.SentimentScore = score
	}
	return nil
}

func (m *MemoryRepository) UpdateEvaluationStatus(_ context.Context, sessionID int64, status repository.EvaluationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.EvaluationStatus = status
	}
	return nil
}

func (m *MemoryRepository) UpsertAnswer(_ context.Context, input repository.UpsertAnswerInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.answers[input.SessionID]; !ok {
		m.answers[input.SessionID] = make(map[int]*repository.AnswerRecord)
	}
	m.answers[input.SessionID][input.QuestionNumber] = &repository.AnswerRecord{
		SessionID:      input.SessionID,
		QuestionNumber: input.QuestionNumber,
		QuestionText:   input.QuestionText,
		AnswerText:     input.AnswerText,
		ElapsedSeconds: input.ElapsedSeconds,
	}
	return nil
}

func (m *MemoryRepository) ListAnswersBySession(_ context.Context, sessionID int64) ([]repository.AnswerRecord, error) {
	if m.ListAnswersErr != nil {
		return nil, m.ListAnswersErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.AnswerRecord
	for _, a := range m.answers[sessionID] {
		list = append(list, *a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].QuestionNumber < list[j].QuestionNumber })
	return list, nil
}

func (m *MemoryRepository) SaveEmotionFrame(_ context.Context, input repository.SaveEmotionFrameInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[input.SessionID]
	if !ok || s.EndedAt != nil {
		return repository.ErrSessionClosed
	}
	s.SentimentScore = input.Score
	m.samples = append(m.samples, repository.EmotionSample{
		ID:             int64(len(m.samples) + 1),
		SessionID:      input.SessionID,
		QuestionNumber: input.QuestionNumber,
		Reason:         input.Reason,
		Score:          input.Score,
		CreatedAt:      time.Now(),
	})
	return nil
}

func (m *MemoryRepository) ListEmotionSamplesBySession(_ context.Context, sessionID int64) ([]repository.EmotionSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.EmotionSample
	for _, s := range m.samples {
		if s.SessionID == sessionID {
			list = append(list, s)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].QuestionNumber < list[j].QuestionNumber })
	return list, nil
}

func (m *MemoryRepository) SaveEvaluation(_ context.Context, input repository.SaveEvaluationInput) error {
	if m.SaveEvaluationErr != nil {
		return m.SaveEvaluationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sessionID := input.Result.SessionID
	for _, a := range input.Answers {
		if _, ok := m.answers[sessionID][a.QuestionNumber]; !ok {
			return fmt.Errorf("answer record %d/%d not found", sessionID, a.QuestionNumber)
		}
	}
	now := time.Now()
	res := input.Result
	res.UpdatedAt = now
	if prev, ok := m.results[sessionID]; ok {
		res.CreatedAt = prev.CreatedAt
	} else {
		res.CreatedAt = now
	}
	m.results[sessionID] = &res
	for _, a := range input.Answers {
		rec := m.answers[sessionID][a.QuestionNumber]
		score := a.Score
		rec.Score = &score
		rec.Feedback = a.Feedback
		rec.Strengths = a.Strengths
		rec.Improvements = a.Improvements
		rec.Pacing = a.Pacing
	}
	if s, ok := m.sessions[sessionID]; ok {
		s.EvaluationStatus = repository.EvaluationStatusSucceeded
	}
	return nil
}

func (m *MemoryRepository) GetEvaluationResult(_ context.Context, sessionID int64) (*repository.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.results[sessionID]
	if !ok {
		return nil, nil
	}
	cp := *res
	return &cp, nil
}

func (m *MemoryRepository) GetPriorEvaluationResult(_ context.Context, userID, sessionID int64) (*repository.EvaluationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *repository.EvaluationResult
	for id, res := range m.results {
		if id >= sessionID {
			continue
		}
		if s, ok := m.sessions[id]; !ok || s.UserID != userID {
			continue
		}
		if best == nil || id > best.SessionID {
			best = res
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}
