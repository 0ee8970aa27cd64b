package evaluation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/metrics"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/foxseedlab/mogimensetsu/internal/webhook"
	"github.com/google/uuid"
)

const deliveryTimeout = 10 * time.Second

// Runner evaluates one session; *Orchestrator is the production runner.
type Runner interface {
	Evaluate(ctx context.Context, sessionID int64) (*Outcome, error)
}

type job struct {
	runID     string
	sessionID int64
}

// WorkerPool runs evaluations off the request path. Schedule never blocks:
// when the queue is full the session is marked failed instead.
type WorkerPool struct {
	runner   Runner
	repo     repository.SessionRepository
	notifier notify.Notifier
	sender   webhook.Sender
	workers  int

	jobs   chan job
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorkerPool(runner Runner, repo repository.SessionRepository, notifier notify.Notifier, sender webhook.Sender, workers, queueSize int) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		runner:   runner,
		repo:     repo,
		notifier: notifier,
		sender:   sender,
		workers:  workers,
		jobs:     make(chan job, queueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(i)
	}
	slog.Info("evaluation workers started", "workers", p.workers, "queue_size", cap(p.jobs))
}

// Schedule queues an evaluation and returns immediately.
func (p *WorkerPool) Schedule(sessionID int64) {
	j := job{runID: uuid.NewString(), sessionID: sessionID}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.reject(j, "worker pool is shut down")
		return
	}
	select {
	case p.jobs <- j:
		slog.Debug("evaluation queued", "run_id", j.runID, "session_id", sessionID)
	default:
		p.reject(j, "evaluation queue is full")
	}
}

func (p *WorkerPool) reject(j job, reason string) {
	metrics.EvaluationRuns.WithLabelValues("rejected").Inc()
	slog.Error("evaluation not scheduled", "reason", reason, "run_id", j.runID, "session_id", j.sessionID)
	ctx, cancel := context.WithTimeout(context.Background(), statusUpdateTimeout)
	defer cancel()
	if err := p.repo.UpdateEvaluationStatus(ctx, j.sessionID, repository.EvaluationStatusFailed); err != nil {
		slog.Error("failed to mark rejected evaluation", "error", err, "session_id", j.sessionID)
	}
}

// Shutdown stops accepting work and waits for queued runs to finish. When ctx
// expires first, in-flight runs are cancelled.
func (p *WorkerPool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *WorkerPool) work(id int) {
	defer p.wg.Done()
	for j := range p.jobs {
		p.run(j, id)
	}
}

func (p *WorkerPool) run(j job, workerID int) {
	slog.Info("evaluation run started", "run_id", j.runID, "session_id", j.sessionID, "worker", workerID)
	outcome, err := p.runner.Evaluate(p.ctx, j.sessionID)
	if err != nil {
		slog.Error("evaluation run failed", "error", err, "run_id", j.runID, "session_id", j.sessionID)
		return
	}
	if outcome.Result == nil {
		return
	}
	p.deliver(outcome)
}

func (p *WorkerPool) deliver(o *Outcome) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), deliveryTimeout)
	defer cancel()

	p.notifier.Notify(ctx, o.Session.UserID, notify.EvaluationCompleted(o.Session.ID))
	if err := p.sender.SendEvaluation(ctx, webhookPayload(o)); err != nil {
		slog.Warn("failed to send result webhook", "error", err, "session_id", o.Session.ID)
	}
}

func webhookPayload(o *Outcome) webhook.EvaluationPayload {
	r := o.Result
	return webhook.EvaluationPayload{
		SessionID:     o.Session.ID,
		UserID:        o.Session.UserID,
		LearningField: o.Session.LearningField,
		VerbalScore:   r.VerbalScore,
		VoiceScore:    r.VoiceScore,
		VisualScore:   r.VisualScore,
		VitalScore:    r.VitalScore,
		TotalScore:    r.TotalScore,
		ScoreChange:   o.ScoreChange,
		FinalFeedback: r.FinalFeedback,
		Strengths:     r.Strengths,
		ReasonSummary: r.ReasonSummary,
		QuestionCount: o.QuestionCount,
	}
}
