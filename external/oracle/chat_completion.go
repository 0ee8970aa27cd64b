package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/foxseedlab/mogimensetsu/internal/oracle"
	"golang.org/x/time/rate"
)

const systemPrompt = `You are an expert job interview evaluator.
You receive a JSON array of interview questions. Each item has question_number, question, answer and emotion_summary (the candidate's observed affect while answering).
Evaluate every item and reply with JSON only, no prose, in exactly this shape:
{"sessionEvaluation":{"totalScore":0-100,"eachScore":{"verbal":0-100,"technical":0-100,"attitude":0-100,"vitality":0-100},"strengths":[string],"weaknesses":[string],"finalFeedback":string},
"questionEvaluations":[{"question_number":int,"score":0-100,"feedback":string,"strengths":[string],"improvements":[string]}]}
Return exactly one questionEvaluations entry per input question, using the input question_number.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ChatCompletionScorer scores chunks through an OpenAI-compatible
// /chat/completions endpoint. Calls are throttled to the configured rate.
type ChatCompletionScorer struct {
	baseURL string
	apiKey  string
	model   string
	limiter *rate.Limiter
	client  *http.Client
}

func NewChatCompletionScorer(baseURL, apiKey, model string, requestsPerMinute int) *ChatCompletionScorer {
	interval := time.Minute / time.Duration(requestsPerMinute)
	return &ChatCompletionScorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		client:  &http.Client{},
	}
}

func (s *ChatCompletionScorer) ScoreChunk(ctx context.Context, chunk []oracle.QuestionSummary) (*oracle.ChunkEvaluation, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for oracle rate limit: %w", err)
	}

	prompt, err := json.Marshal(chunk)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(chatCompletionRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: string(prompt)},
		},
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, truncate(string(body), 512))
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode chat completion: %w", err)
	}
	if len(out.Choices) == 0 {
		return nil, fmt.Errorf("oracle returned no choices")
	}
	return oracle.DecodeChunkEvaluation(out.Choices[0].Message.Content)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
