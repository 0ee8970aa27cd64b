package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE evaluation_status AS ENUM ('none', 'pending', 'succeeded', 'failed', 'skipped'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS user_profiles (
		user_id BIGINT PRIMARY KEY,
		learning_field TEXT NOT NULL DEFAULT '',
		preferred_language TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS interview_sessions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES user_profiles(user_id),
		learning_field TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL,
		ended_at TIMESTAMPTZ,
		sentiment_score DOUBLE PRECISION NOT NULL DEFAULT 100,
		evaluation_status evaluation_status NOT NULL DEFAULT 'none'
	)`,
	`CREATE INDEX IF NOT EXISTS idx_interview_sessions_open ON interview_sessions (user_id, started_at DESC) WHERE ended_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS answer_records (
		session_id BIGINT NOT NULL REFERENCES interview_sessions(id) ON DELETE CASCADE,
		question_number INTEGER NOT NULL CHECK (question_number > 0),
		question_text TEXT NOT NULL,
		answer_text TEXT NOT NULL,
		elapsed_seconds INTEGER,
		score INTEGER,
		feedback TEXT NOT NULL DEFAULT '',
		strengths TEXT[] NOT NULL DEFAULT '{}',
		improvements TEXT[] NOT NULL DEFAULT '{}',
		pacing TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (session_id, question_number)
	)`,
	`CREATE TABLE IF NOT EXISTS emotion_samples (
		id BIGSERIAL PRIMARY KEY,
		session_id BIGINT NOT NULL REFERENCES interview_sessions(id) ON DELETE CASCADE,
		question_number INTEGER NOT NULL,
		reason TEXT NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_emotion_samples_session ON emotion_samples (session_id, question_number, id)`,
	`CREATE TABLE IF NOT EXISTS evaluation_results (
		session_id BIGINT PRIMARY KEY REFERENCES interview_sessions(id) ON DELETE CASCADE,
		verbal_score INTEGER NOT NULL,
		voice_score INTEGER NOT NULL,
		visual_score INTEGER NOT NULL,
		vital_score INTEGER NOT NULL,
		total_score INTEGER NOT NULL,
		final_feedback TEXT NOT NULL DEFAULT '',
		strengths TEXT[] NOT NULL DEFAULT '{}',
		reason_summary TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
