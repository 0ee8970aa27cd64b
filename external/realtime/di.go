package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/config"
	"github.com/foxseedlab/mogimensetsu/internal/notify"
	"github.com/go-redis/redis/v8"
	"github.com/samber/do/v2"
)

const redisPingTimeout = 5 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Hub, error) {
		cfg := do.MustInvoke[*config.Config](i)
		if cfg.RedisAddr == "" {
			return NewHub(nil, ""), nil
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			PoolSize:     20,
			MinIdleConns: 2,
		})
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		return NewHub(rdb, cfg.RedisChannel), nil
	})
	do.Provide(injector, func(i do.Injector) (notify.Notifier, error) {
		return do.MustInvoke[*Hub](i), nil
	})
}
