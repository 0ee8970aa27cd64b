package evaluation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/foxseedlab/mogimensetsu/internal/testutil"
	"github.com/foxseedlab/mogimensetsu/internal/webhook"
)

type mockNotifier struct {
	mu     sync.Mutex
	events map[int64][]notify.Event
}

func (m *mockNotifier) Notify(_ context.Context, userID int64, event notify.Event) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.events == nil {
		m.events = make(map[int64][]notify.Event)
	}
	m.events[userID] = append(m.events[userID], event)
	return true
}

type mockSender struct {
	mu       sync.Mutex
	payloads []webhook.EvaluationPayload
	err      error
}

func (m *mockSender) SendEvaluation(_ context.Context, payload webhook.EvaluationPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return m.err
}

type mockRunner struct {
	mu    sync.Mutex
	runs  []int64
	err   error
	block chan struct{}
}

func (m *mockRunner) Evaluate(ctx context.Context, sessionID int64) (*Outcome, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	m.runs = append(m.runs, sessionID)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	change := 3
	return &Outcome{
		Session:       repository.Session{ID: sessionID, UserID: 7, LearningField: "backend"},
		Status:        repository.EvaluationStatusSucceeded,
		Result:        &repository.EvaluationResult{SessionID: sessionID, TotalScore: 81},
		ScoreChange:   &change,
		QuestionCount: 4,
	}, nil
}

func TestWorkerPool_RunsScheduledEvaluations(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	runner := &mockRunner{}
	n := &mockNotifier{}
	sender := &mockSender{err: errors.New("webhook down")}
	pool := NewWorkerPool(runner, repo, n, sender, 2, 8)
	pool.Start()

	pool.Schedule(11)
	pool.Schedule(12)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	if len(runner.runs) != 2 {
		t.Fatalf("expected 2 runs, got %v", runner.runs)
	}
	if len(n.events[7]) != 2 || n.events[7][0].Type != notify.EventEvaluationComplete {
		t.Fatalf("expected two completion events for user 7, got %+v", n.events)
	}
	if len(sender.payloads) != 2 {
		t.Fatalf("expected two webhook payloads, got %d", len(sender.payloads))
	}
	p := sender.payloads[0]
	if p.TotalScore != 81 || p.QuestionCount != 4 || p.ScoreChange == nil || *p.ScoreChange != 3 || p.LearningField != "backend" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestWorkerPool_FailedRunDeliversNothing(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	n := &mockNotifier{}
	sender := &mockSender{}
	pool := NewWorkerPool(&mockRunner{err: errors.New("oracle failure")}, repo, n, sender, 1, 4)
	pool.Start()

	pool.Schedule(5)
	if err := pool.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if len(n.events) != 0 || len(sender.payloads) != 0 {
		t.Fatalf("expected no deliveries, got %+v / %+v", n.events, sender.payloads)
	}
}

func TestWorkerPool_FullQueueMarksSessionFailed(t *testing.T) {
	repo := testutil.NewMemoryRepository()
	first := seedSession(t, repo, 7, 1)
	second := seedSession(t, repo, 7, 1)
	runner := &mockRunner{}
	pool := NewWorkerPool(runner, repo, &mockNotifier{}, &mockSender{}, 1, 1)

	// Workers are not started yet, so the second job finds the queue full.
	pool.Schedule(first)
	pool.Schedule(second)

	ctx := context.Background()
	sess, _ := repo.GetSession(ctx, second)
	if sess.EvaluationStatus != repository.EvaluationStatusFailed {
		t.Fatalf("expected rejected session to be failed, got %s", sess.EvaluationStatus)
	}
	sess, _ = repo.GetSession(ctx, first)
	if sess.EvaluationStatus != repository.EvaluationStatusPending {
		t.Fatalf("expected queued session to stay pending, got %s", sess.EvaluationStatus)
	}

	pool.Start()
	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}
	if len(runner.runs) != 1 || runner.runs[0] != first {
		t.Fatalf("expected only the queued session to run, got %v", runner.runs)
	}

	third := seedSession(t, repo, 7, 1)
	pool.Schedule(third)
	sess, _ = repo.GetSession(ctx, third)
	if sess.EvaluationStatus != repository.EvaluationStatusFailed {
		t.Fatalf("expected schedule after shutdown to fail the session, got %s", sess.EvaluationStatus)
	}
}

func TestWorkerPool_ShutdownDeadlineCancelsRuns(t *testing.T) {
	runner := &mockRunner{block: make(chan struct{})}
	pool := NewWorkerPool(runner, testutil.NewMemoryRepository(), &mockNotifier{}, &mockSender{}, 1, 1)
	pool.Start()
	pool.Schedule(1)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := pool.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if len(runner.runs) != 0 {
		t.Fatalf("expected cancelled run not to complete, got %v", runner.runs)
	}
}
