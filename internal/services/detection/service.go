package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/models"
)

const maxRetryBackoff = 30 * time.Second

// Client calls an external inference service over HTTP. Each frame is posted
// as a JPEG body; the service answers with a JSON detection list. Failures
// feed an exponential backoff so a dead detector does not get hammered at
// frame rate.
type Client struct {
	endpoint string
	http     *http.Client

	mu               sync.Mutex
	consecutiveFails int
	lastFailTime     time.Time
}

// detectionResponse is the inference service's answer for one frame.
type detectionResponse struct {
	Detections []models.Detection `json:"detections"`
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		endpoint: cfg.DetectorEndpoint,
		http: &http.Client{
			Timeout: cfg.DetectorTimeout,
		},
	}
}

// Detect runs inference on one frame. While in a backoff window it returns
// an error immediately without touching the network.
func (c *Client) Detect(ctx context.Context, frame *models.Frame) ([]models.Detection, error) {
	if !c.shouldRetry() {
		return nil, fmt.Errorf("detector in backoff period after consecutive failures")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(frame.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to build detector request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("X-Frame-ID", fmt.Sprintf("%d", frame.FrameID))

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detector returned status %d: %s", resp.StatusCode, body)
	}

	var parsed detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.recordFailure()
		return nil, fmt.Errorf("failed to decode detector response: %w", err)
	}

	c.mu.Lock()
	c.consecutiveFails = 0
	c.mu.Unlock()

	return parsed.Detections, nil
}

// shouldRetry implements exponential backoff: 1s, 2s, 4s, ... capped at 30s.
func (c *Client) shouldRetry() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.consecutiveFails == 0 {
		return true
	}

	backoff := time.Duration(1<<uint(c.consecutiveFails-1)) * time.Second
	if backoff > maxRetryBackoff {
		backoff = maxRetryBackoff
	}

	return time.Since(c.lastFailTime) >= backoff
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++
	c.lastFailTime = time.Now()

	if c.consecutiveFails <= 5 {
		log.Warn().
			Str("endpoint", c.endpoint).
			Int("consecutive_fails", c.consecutiveFails).
			Msg("Detector failure recorded")
	}
}
