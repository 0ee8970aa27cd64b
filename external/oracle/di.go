package oracle

import (
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (oracle.Scorer, error) {
		c := do.MustInvoke[*config.Config](i)
		return NewChatCompletionScorer(c.OracleBaseURL, c.OracleAPIKey, c.OracleModel, c.OracleRequestsPerMinute), nil
	})
}
