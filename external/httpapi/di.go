package httpapi

import (
	"github.com/foxseedlab/mogimensetsu/external/realtime"
	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/emotion"
	"github.com/foxseedlab/mogimensetsu/internal/evaluation"
	"github.com/foxseedlab/mogimensetsu/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Handler, error) {
		return NewHandler(
			do.MustInvoke[*session.Manager](i),
			do.MustInvoke[*emotion.Aggregator](i),
			do.MustInvoke[*evaluation.Finalizer](i),
			do.MustInvoke[*evaluation.Reporter](i),
			do.MustInvoke[*realtime.Hub](i),
			do.MustInvoke[*pgxpool.Pool](i),
		), nil
	})
	do.Provide(injector, func(i do.Injector) (*gin.Engine, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if !cfg.IsDevelopment() {
			gin.SetMode(gin.ReleaseMode)
		}
		return NewRouter(do.MustInvoke[*Handler](i)), nil
	})
}
