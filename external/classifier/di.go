package classifier

import (
	"github.com/foxseedlab/mogimensetsu/internal/classifier"
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (classifier.Classifier, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewHTTPClassifier(c.ClassifierURL), nil
	})
}
