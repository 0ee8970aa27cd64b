package notify

import "context"

type EventType string

const (
	EventSentimentUpdate    EventType = "sentiment-update"
	EventEvaluationComplete EventType = "evaluation-complete"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

type SentimentUpdate struct {
	SessionID int64   `json:"sessionId"`
	NewScore  float64 `json:"newScore"`
}

type EvaluationComplete struct {
	SessionID int64 `json:"sessionId"`
}

func SentimentUpdated(sessionID int64, score float64) Event {
	return Event{Type: EventSentimentUpdate, Data: SentimentUpdate{SessionID: sessionID, NewScore: score}}
}

func EvaluationCompleted(sessionID int64) Event {
	return Event{Type: EventEvaluationComplete, Data: EvaluationComplete{SessionID: sessionID}}
}

// Notifier delivers at most once to the user's live subscriber. It reports
// whether a subscriber took the event; absent subscribers are skipped, never queued.
type Notifier interface {
	Notify(ctx context.Context, userID int64, event Event) bool
}

type Nop struct{}

func (Nop) Notify(context.Context, int64, Event) bool { return false }
