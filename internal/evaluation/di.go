package evaluation

import (
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/foxseedlab/mogimensetsu/internal/webhook"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Finalizer, error) {
		return NewFinalizer(do.MustInvoke[repository.Repository](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Reporter, error) {
		repo := do.MustInvoke[repository.Repository](i)
		return NewReporter(repo, do.MustInvoke[*Finalizer](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Orchestrator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		scorer := do.MustInvoke[oracle.Scorer](i)
		return NewOrchestrator(repo, scorer, do.MustInvoke[*Finalizer](i), cfg.EvaluationBatchSize, cfg.OracleTimeout), nil
	})
	do.Provide(injector, func(i do.Injector) (*WorkerPool, error) {
		cfg := do.MustInvoke[*config.Config](i)
		pool := NewWorkerPool(
			do.MustInvoke[*Orchestrator](i),
			do.MustInvoke[repository.Repository](i),
			do.MustInvoke[notify.Notifier](i),
			do.MustInvoke[webhook.Sender](i),
			cfg.EvaluationWorkers,
			cfg.EvaluationQueueSize,
		)
		pool.Start()
		return pool, nil
	})
}
