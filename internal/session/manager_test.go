package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/apperrors"
	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/foxseedlab/mogimensetsu/internal/testutil"
)

type mockScheduler struct {
	mu        sync.Mutex
	scheduled []int64
}

func (m *mockScheduler) Schedule(sessionID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scheduled = append(m.scheduled, sessionID)
}

func newTestManager(repo repository.Repository) (*Manager, *mockScheduler) {
	sched := &mockScheduler{}
	m := NewManager(repo, sched, emotion.NewAggregator(repo, notify.Nop{}, nil))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var tick int
	m.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return m, sched
}

func TestStartSession_UnknownUser(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	manager, _ := newTestManager(repo)

	_, err := manager.StartSession(context.Background(), 7)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStartSession_CreatesOpenSessionAtCeiling(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	repo.AddUser(7, "backend")
	manager, _ := newTestManager(repo)

	id, err := manager.StartSession(context.Background(), 7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	sess, _ := repo.GetSession(context.Background(), id)
	if sess == nil || !sess.IsOpen() {
		t.Fatalf("expected open session, got %+v", sess)
	}
	if sess.SentimentScore != repository.SentimentScoreCeiling {
		t.Fatalf("unexpected initial score: %v", sess.SentimentScore)
	}
	if sess.LearningField != "backend" {
		t.Fatalf("unexpected learning field: %s", sess.LearningField)
	}
}

func TestFinishSession_SchedulesEvaluationOnce(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	repo.AddUser(7, "backend")
	manager, sched := newTestManager(repo)
	ctx := context.Background()

	id, err := manager.StartSession(ctx, 7)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	finished, err := manager.FinishSession(ctx, 7)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if finished != id {
		t.Fatalf("expected session %d finished, got %d", id, finished)
	}
	sess, _ := repo.GetSession(ctx, id)
	if sess.IsOpen() || sess.EvaluationStatus != repository.EvaluationStatusPending {
		t.Fatalf("expected closed pending session, got %+v", sess)
	}

	_, err = manager.FinishSession(ctx, 7)
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double finish, got %v", err)
	}
	if len(sched.scheduled) != 1 || sched.scheduled[0] != id {
		t.Fatalf("expected exactly one scheduled evaluation, got %v", sched.scheduled)
	}
}

func TestFinishSession_PicksMostRecentOpenSession(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	repo.AddUser(7, "backend")
	manager, _ := newTestManager(repo)
	ctx := context.Background()

	if _, err := manager.StartSession(ctx, 7); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	second, err := manager.StartSession(ctx, 7)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	finished, err := manager.FinishSession(ctx, 7)
	if err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if finished != second {
		t.Fatalf("expected most recent session %d, got %d", second, finished)
	}
}

func TestResetEmotionScore(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	repo.AddUser(7, "backend")
	manager, _ := newTestManager(repo)
	ctx := context.Background()

	id, _ := manager.StartSession(ctx, 7)
	_ = repo.UpdateSentimentScore(ctx, id, 42)

	if err := manager.ResetEmotionScore(ctx, id); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	sess, _ := repo.GetSession(ctx, id)
	if sess.SentimentScore != repository.SentimentScoreCeiling {
		t.Fatalf("expected score reset to ceiling, got %v", sess.SentimentScore)
	}
	if err := manager.ResetEmotionScore(ctx, 999); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown session, got %v", err)
	}
	if err := manager.ResetEmotionScore(ctx, 0); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected ErrValidation for missing session id, got %v", err)
	}
}

func TestRecordAnswer_Validation(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	manager, _ := newTestManager(repo)
	negative := -3

	tests := []struct {
		name  string
		input RecordAnswerInput
	}{
		{name: "missing session", input: RecordAnswerInput{QuestionNumber: 1, QuestionText: "q", AnswerText: "a"}},
		{name: "zero question number", input: RecordAnswerInput{SessionID: 1, QuestionNumber: 0, QuestionText: "q", AnswerText: "a"}},
		{name: "blank question", input: RecordAnswerInput{SessionID: 1, QuestionNumber: 1, QuestionText: " ", AnswerText: "a"}},
		{name: "blank answer", input: RecordAnswerInput{SessionID: 1, QuestionNumber: 1, QuestionText: "q"}},
		{name: "negative elapsed", input: RecordAnswerInput{SessionID: 1, QuestionNumber: 1, QuestionText: "q", AnswerText: "a", ElapsedSeconds: &negative}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.RecordAnswer(context.Background(), tt.input)
			if !errors.Is(err, apperrors.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestRecordAnswer_RejectsClosedSession(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	repo.AddUser(7, "backend")
	manager, _ := newTestManager(repo)
	ctx := context.Background()

	id, _ := manager.StartSession(ctx, 7)
	input := RecordAnswerInput{SessionID: id, QuestionNumber: 1, QuestionText: "Tell me about yourself", AnswerText: "I build services."}
	if err := manager.RecordAnswer(ctx, input); err != nil {
		t.Fatalf("expected answer to be recorded, got %v", err)
	}
	if _, err := manager.FinishSession(ctx, 7); err != nil {
		t.Fatalf("finish failed: %v", err)
	}
	if err := manager.RecordAnswer(ctx, input); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for closed session, got %v", err)
	}

	answers, _ := repo.ListAnswersBySession(ctx, id)
	if len(answers) != 1 || answers[0].AnswerText != "I build services." {
		t.Fatalf("unexpected answers: %+v", answers)
	}
}
