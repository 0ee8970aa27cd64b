package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/mogimensetsu/internal/config"
)

type envConfig struct {
	Env                     string        `env:"ENV" envDefault:"production"`
	DatabaseURL             string        `env:"DATABASE_URL,required"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:":8080"`
	OracleBaseURL           string        `env:"ORACLE_BASE_URL,required"`
	OracleAPIKey            string        `env:"ORACLE_API_KEY,required"`
	OracleModel             string        `env:"ORACLE_MODEL" envDefault:"gpt-4o-mini"`
	OracleTimeout           time.Duration `env:"ORACLE_TIMEOUT" envDefault:"90s"`
	OracleRequestsPerMinute int           `env:"ORACLE_REQUESTS_PER_MINUTE" envDefault:"30"`
	EvaluationBatchSize     int           `env:"EVALUATION_BATCH_SIZE" envDefault:"5"`
	EvaluationWorkers       int           `env:"EVALUATION_WORKERS" envDefault:"2"`
	EvaluationQueueSize     int           `env:"EVALUATION_QUEUE_SIZE" envDefault:"64"`
	ClassifierURL           string        `env:"CLASSIFIER_URL"`
	RedisAddr               string        `env:"REDIS_ADDR"`
	RedisChannel            string        `env:"REDIS_CHANNEL" envDefault:"mogimensetsu:events"`
	ResultWebhookURL        string        `env:"RESULT_WEBHOOK_URL"`
}

func Load() (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                     raw.Env,
		DatabaseURL:             raw.DatabaseURL,
		HTTPAddr:                raw.HTTPAddr,
		OracleBaseURL:           raw.OracleBaseURL,
		OracleAPIKey:            raw.OracleAPIKey,
		OracleModel:             raw.OracleModel,
		OracleTimeout:           raw.OracleTimeout,
		OracleRequestsPerMinute: raw.OracleRequestsPerMinute,
		EvaluationBatchSize:     raw.EvaluationBatchSize,
		EvaluationWorkers:       raw.EvaluationWorkers,
		EvaluationQueueSize:     raw.EvaluationQueueSize,
		ClassifierURL:           raw.ClassifierURL,
		RedisAddr:               raw.RedisAddr,
		RedisChannel:            raw.RedisChannel,
		ResultWebhookURL:        raw.ResultWebhookURL,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
