package session

import (
	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Manager, error) {
		repo := do.MustInvoke[repository.Repository](i)
		pool := do.MustInvoke[*evaluation.WorkerPool](i)
		scores := do.MustInvoke[*emotion.Aggregator](i)
		return NewManager(repo, pool, scores), nil
	})
}
