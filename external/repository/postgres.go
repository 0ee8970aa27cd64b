package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/foxseedlab/mogimensetsu/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, user_id, learning_field, started_at, ended_at, sentiment_score, evaluation_status::text`

const resultColumns = `session_id, verbal_score, voice_score, visual_score, vital_score, total_score,
	final_feedback, strengths, reason_summary, created_at, updated_at`

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) GetUserProfile(ctx context.Context, userID int64) (*repository.UserProfile, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, learning_field, preferred_language FROM user_profiles WHERE user_id = $1`,
		userID)
	var p repository.UserProfile
	if err := row.Scan(&p.UserID, &p.LearningField, &p.PreferredLanguage); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO interview_sessions (user_id, learning_field, started_at, sentiment_score)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+sessionColumns,
		input.UserID, input.LearningField, input.StartedAt, input.SentimentScore)
	return scanSession(row)
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID int64) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM interview_sessions WHERE id = $1`,
		sessionID)
	return scanSessionOrNil(row)
}

func (r *PostgresRepository) GetOpenSessionByUser(ctx context.Context, userID int64) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM interview_sessions WHERE user_id = $1 AND ended_at IS NULL
		 ORDER BY started_at DESC, id DESC
		 LIMIT 1`,
		userID)
	return scanSessionOrNil(row)
}

func (r *PostgresRepository) CloseSession(ctx context.Context, input repository.CloseSessionInput) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET ended_at = $2, evaluation_status = 'pending'
		 WHERE id = $1 AND ended_at IS NULL`,
		input.SessionID, input.EndedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresRepository) UpdateSentimentScore(ctx context.Context, sessionID int64, score float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET sentiment_score = $2 WHERE id = $1`,
		sessionID, score)
	return err
}

func (r *PostgresRepository) UpdateEvaluationStatus(ctx context.Context, sessionID int64, status repository.EvaluationStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions SET evaluation_status = $2::evaluation_status WHERE id = $1`,
		sessionID, string(status))
	return err
}

func (r *PostgresRepository) UpsertAnswer(ctx context.Context, input repository.UpsertAnswerInput) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO answer_records (session_id, question_number, question_text, answer_text, elapsed_seconds)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id, question_number) DO UPDATE
		 SET question_text = EXCLUDED.question_text,
		     answer_text = EXCLUDED.answer_text,
		     elapsed_seconds = EXCLUDED.elapsed_seconds`,
		input.SessionID, input.QuestionNumber, input.QuestionText, input.AnswerText, input.ElapsedSeconds)
	return err
}

func (r *PostgresRepository) ListAnswersBySession(ctx context.Context, sessionID int64) ([]repository.AnswerRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, question_number, question_text, answer_text, elapsed_seconds,
		        score, feedback, strengths, improvements, pacing
		 FROM answer_records WHERE session_id = $1 ORDER BY question_number ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.AnswerRecord
	for rows.Next() {
		var a repository.AnswerRecord
		var pacing string
		if err := rows.Scan(&a.SessionID, &a.QuestionNumber, &a.QuestionText, &a.AnswerText, &a.ElapsedSeconds,
			&a.Score, &a.Feedback, &a.Strengths, &a.Improvements, &pacing); err != nil {
			return nil, err
		}
		a.Pacing = repository.Pacing(pacing)
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) SaveEmotionFrame(ctx context.Context, input repository.SaveEmotionFrameInput) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE interview_sessions SET sentiment_score = $2 WHERE id = $1 AND ended_at IS NULL`,
			input.SessionID, input.Score)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrSessionClosed
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO emotion_samples (session_id, question_number, reason, score)
			 VALUES ($1, $2, $3, $4)`,
			input.SessionID, input.QuestionNumber, input.Reason, input.Score)
		return err
	})
}

func (r *PostgresRepository) ListEmotionSamplesBySession(ctx context.Context, sessionID int64) ([]repository.EmotionSample, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_number, reason, score, created_at
		 FROM emotion_samples WHERE session_id = $1 ORDER BY question_number ASC, id ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.EmotionSample
	for rows.Next() {
		var s repository.EmotionSample
		if err := rows.Scan(&s.ID, &s.SessionID, &s.QuestionNumber, &s.Reason, &s.Score, &s.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) SaveEvaluation(ctx context.Context, input repository.SaveEvaluationInput) error {
	res := input.Result
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO evaluation_results (session_id, verbal_score, voice_score, visual_score, vital_score,
			                                 total_score, final_feedback, strengths, reason_summary)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			 ON CONFLICT (session_id) DO UPDATE
			 SET verbal_score = EXCLUDED.verbal_score,
			     voice_score = EXCLUDED.voice_score,
			     visual_score = EXCLUDED.visual_score,
			     vital_score = EXCLUDED.vital_score,
			     total_score = EXCLUDED.total_score,
			     final_feedback = EXCLUDED.final_feedback,
			     strengths = EXCLUDED.strengths,
			     reason_summary = EXCLUDED.reason_summary,
			     updated_at = NOW()`,
			res.SessionID, res.VerbalScore, res.VoiceScore, res.VisualScore, res.VitalScore,
			res.TotalScore, res.FinalFeedback, nonNilStrings(res.Strengths), res.ReasonSummary); err != nil {
			return err
		}
		for _, a := range input.Answers {
			tag, err := tx.Exec(ctx,
				`UPDATE answer_records
				 SET score = $3, feedback = $4, strengths = $5, improvements = $6, pacing = $7
				 WHERE session_id = $1 AND question_number = $2`,
				res.SessionID, a.QuestionNumber, a.Score, a.Feedback,
				nonNilStrings(a.Strengths), nonNilStrings(a.Improvements), string(a.Pacing))
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return fmt.Errorf("answer record %d/%d not found", res.SessionID, a.QuestionNumber)
			}
		}
		_, err := tx.Exec(ctx,
			`UPDATE interview_sessions SET evaluation_status = 'succeeded' WHERE id = $1`,
			res.SessionID)
		return err
	})
}

func (r *PostgresRepository) GetEvaluationResult(ctx context.Context, sessionID int64) (*repository.EvaluationResult, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM evaluation_results WHERE session_id = $1`,
		sessionID)
	return scanResultOrNil(row)
}

func (r *PostgresRepository) GetPriorEvaluationResult(ctx context.Context, userID, sessionID int64) (*repository.EvaluationResult, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT r.session_id, r.verbal_score, r.voice_score, r.visual_score, r.vital_score, r.total_score,
		        r.final_feedback, r.strengths, r.reason_summary, r.created_at, r.updated_at
		 FROM evaluation_results r
		 JOIN interview_sessions s ON s.id = r.session_id
		 WHERE s.user_id = $1 AND r.session_id < $2
		 ORDER BY r.session_id DESC
		 LIMIT 1`,
		userID, sessionID)
	return scanResultOrNil(row)
}

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	var status string
	if err := row.Scan(&s.ID, &s.UserID, &s.LearningField, &s.StartedAt, &s.EndedAt, &s.SentimentScore, &status); err != nil {
		return nil, err
	}
	s.EvaluationStatus = repository.EvaluationStatus(status)
	return &s, nil
}

func scanSessionOrNil(row pgx.Row) (*repository.Session, error) {
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

func scanResultOrNil(row pgx.Row) (*repository.EvaluationResult, error) {
	var res repository.EvaluationResult
	err := row.Scan(&res.SessionID, &res.VerbalScore, &res.VoiceScore, &res.VisualScore, &res.VitalScore,
		&res.TotalScore, &res.FinalFeedback, &res.Strengths, &res.ReasonSummary, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &res, nil
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
