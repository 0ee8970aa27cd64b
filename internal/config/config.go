package config

import (
	"fmt"
	"time"
)

type Config struct {
	Env                     string
	DatabaseURL             string
	HTTPAddr                string
	OracleBaseURL           string
	OracleAPIKey            string
	OracleModel             string
	OracleTimeout           time.Duration
	OracleRequestsPerMinute int
	EvaluationBatchSize     int
	EvaluationWorkers       int
	EvaluationQueueSize     int
	ClassifierURL           string
	RedisAddr               string
	RedisChannel            string
	ResultWebhookURL        string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	for _, pos := range c.positiveFieldChecks() {
		if pos.value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", pos.name, pos.value)
		}
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT must be positive, got %s", c.OracleTimeout)
	}
	if c.RedisAddr != "" && c.RedisChannel == "" {
		return fmt.Errorf("REDIS_CHANNEL is required when REDIS_ADDR is set")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

type positiveEnvField struct {
	name  string
	value int
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DATABASE_URL", value: c.DatabaseURL},
		{name: "HTTP_ADDR", value: c.HTTPAddr},
		{name: "ORACLE_BASE_URL", value: c.OracleBaseURL},
		{name: "ORACLE_API_KEY", value: c.OracleAPIKey},
		{name: "ORACLE_MODEL", value: c.OracleModel},
	}
}

func (c *Config) positiveFieldChecks() []positiveEnvField {
	return []positiveEnvField{
		{name: "ORACLE_REQUESTS_PER_MINUTE", value: c.OracleRequestsPerMinute},
		{name: "EVALUATION_BATCH_SIZE", value: c.EvaluationBatchSize},
		{name: "EVALUATION_WORKERS", value: c.EvaluationWorkers},
		{name: "EVALUATION_QUEUE_SIZE", value: c.EvaluationQueueSize},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
