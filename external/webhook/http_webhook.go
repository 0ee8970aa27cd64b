package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/webhook"
)

const (
	webhookTimeout = 15 * time.Second
	// keeps the error readable when the receiver answers with an HTML page
	maxErrorBodyBytes = 256

	eventHeader   = "X-Mogimensetsu-Event"
	sessionHeader = "X-Mogimensetsu-Session"
	resultEvent   = "evaluation-complete"
)

// StatusError reports a receiver that answered outside 2xx.
type StatusError struct {
	SessionID  int64
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("result webhook for session %d returned status %d", e.SessionID, e.StatusCode)
	}
	return fmt.Sprintf("result webhook for session %d returned status %d: %s", e.SessionID, e.StatusCode, e.Body)
}

type HTTPSender struct {
	webhookURL string
	client     *http.Client
}

func NewHTTPSender(webhookURL string) webhook.Sender {
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: webhookTimeout},
	}
}

// SendEvaluation posts the final result of one session. The event and the
// session id travel as headers too so receivers can route without parsing.
// An empty URL disables delivery.
func (s *HTTPSender) SendEvaluation(ctx context.Context, payload webhook.EvaluationPayload) error {
	if s.webhookURL == "" {
		return nil
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode result for session %d: %w", payload.SessionID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, resultEvent)
	req.Header.Set(sessionHeader, strconv.FormatInt(payload.SessionID, 10))

	started := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post result for session %d: %w", payload.SessionID, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{
			SessionID:  payload.SessionID,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}
	slog.Debug("result webhook delivered",
		"session_id", payload.SessionID,
		"status", resp.StatusCode,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}
