package emotion

import (
	"github.com/foxseedlab/mogimensetsu/internal/classifier"
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Aggregator, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo := do.MustInvoke[repository.Repository](i)
		n := do.MustInvoke[notify.Notifier](i)

		var cls classifier.Classifier
		if cfg.ClassifierURL != "" {
			c, err := do.Invoke[classifier.Classifier](i)
			if err != nil {
				return nil, err
			}
			cls = c
		}
		return NewAggregator(repo, n, cls), nil
	})
}
