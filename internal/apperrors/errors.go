// Package apperrors defines the failure taxonomy shared by the interview
// services and the HTTP layer.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrOracle     = errors.New("oracle failure")
	ErrStore      = errors.New("store failure")
)

func NotFound(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Store wraps a database error so callers can match ErrStore while keeping the cause.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// OracleFailure aborts an evaluation run. Chunk is zero-based.
type OracleFailure struct {
	SessionID int64
	Chunk     int
	Err       error
}

func (e *OracleFailure) Error() string {
	return fmt.Sprintf("oracle failure for session %d chunk %d: %v", e.SessionID, e.Chunk, e.Err)
}

func (e *OracleFailure) Unwrap() error {
	return e.Err
}

func (e *OracleFailure) Is(target error) bool {
	return target == ErrOracle
}
