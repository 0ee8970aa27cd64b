package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/mogimensetsu/internal/classifier"
)

const classifyTimeout = 10 * time.Second

type analyzeRequest struct {
	Image string `json:"image"`
}

type analyzeResponse struct {
	ScoreDelta   *float64           `json:"score_delta"`
	Contributors map[string]float64 `json:"contributors"`
}

// HTTPClassifier posts base64 frames to the emotion service's /analyze endpoint.
type HTTPClassifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClassifier(baseURL string) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: classifyTimeout},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, frame []byte) (*classifier.Classification, error) {
	b, err := json.Marshal(analyzeRequest{Image: base64.StdEncoding.EncodeToString(frame)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("classifier decode: %w", err)
	}
	if out.ScoreDelta == nil {
		return nil, fmt.Errorf("classifier response has no score_delta")
	}
	return &classifier.Classification{
		ScoreDelta:   *out.ScoreDelta,
		Contributors: out.Contributors,
	}, nil
}
