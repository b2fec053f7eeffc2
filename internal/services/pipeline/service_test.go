package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/models"
)

// stubSource replays a fixed frame sequence then reports exhaustion.
type stubSource struct {
	frames int
	next   int
	closed bool
}

func (s *stubSource) Read() (*models.Frame, bool) {
	if s.next >= s.frames {
		return nil, false
	}
	s.next++
	return &models.Frame{
		Data:      []byte("not-a-jpeg"),
		FrameID:   int64(s.next),
		Timestamp: time.Now(),
	}, true
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

// stubDetector returns scripted per-frame detections keyed by frame order.
type stubDetector struct {
	perFrame [][]models.Detection
	calls    int
}

func (d *stubDetector) Detect(_ context.Context, _ *models.Frame) ([]models.Detection, error) {
	var dets []models.Detection
	if d.calls < len(d.perFrame) {
		dets = d.perFrame[d.calls]
	}
	d.calls++
	return dets, nil
}

// recordingChannel captures every alert it is handed.
type recordingChannel struct {
	mu   sync.Mutex
	sent []*models.Alert
	ok   bool
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Send(_ context.Context, alert *models.Alert) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, alert)
	return c.ok
}

func (c *recordingChannel) alerts() []*models.Alert {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*models.Alert(nil), c.sent...)
}

func fireDet(conf float64) []models.Detection {
	return []models.Detection{{X1: 1, Y1: 1, X2: 5, Y2: 5, Confidence: conf, ClassID: 0, Label: "fire"}}
}

func testConfig() *config.Config {
	return &config.Config{
		Source:               "test-video",
		ConfThreshold:        0.25,
		ConsecutiveThreshold: 2,
		AlertCooldown:        0,
		OutputQuality:        85,
	}
}

func runPipeline(t *testing.T, cfg *config.Config, source *stubSource, detector *stubDetector,
	store *alerts.Store, channels ...models.NotificationChannel) {
	t.Helper()

	svc := NewService(cfg, source, detector,
		alerts.NewDecider(cfg.ConsecutiveThreshold, cfg.AlertCooldown), store, channels)
	svc.Start()

	select {
	case <-svc.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not finish")
	}
}

func TestPipeline_FiresAfterConsecutiveDetections(t *testing.T) {
	store := alerts.NewStore()
	channel := &recordingChannel{ok: true}

	// Detections on frames 1,2 and 4,5; the gap at frame 3 resets the run,
	// so with threshold 2 and no cooldown exactly two alerts fire.
	detector := &stubDetector{perFrame: [][]models.Detection{
		fireDet(0.9), fireDet(0.8), nil, fireDet(0.7), fireDet(0.95),
	}}
	source := &stubSource{frames: 5}

	runPipeline(t, testConfig(), source, detector, store, channel)

	sent := channel.alerts()
	require.Len(t, sent, 2)
	assert.Equal(t, "fire", sent[0].Label)
	assert.Len(t, store.GetPending(), 2)
	assert.True(t, source.closed)
}

func TestPipeline_ConfidenceFilterSuppressesWeakDetections(t *testing.T) {
	store := alerts.NewStore()
	channel := &recordingChannel{ok: true}

	// All below the 0.25 threshold: filtered out, decider never sees a
	// detecting frame.
	detector := &stubDetector{perFrame: [][]models.Detection{
		fireDet(0.1), fireDet(0.2), fireDet(0.15),
	}}

	runPipeline(t, testConfig(), &stubSource{frames: 3}, detector, store, channel)

	assert.Empty(t, channel.alerts())
	assert.Zero(t, store.PendingCount())
}

func TestPipeline_ClassFilter(t *testing.T) {
	store := alerts.NewStore()
	channel := &recordingChannel{ok: true}

	cfg := testConfig()
	cfg.TargetClasses = []int{1} // detections carry class 0

	detector := &stubDetector{perFrame: [][]models.Detection{
		fireDet(0.9), fireDet(0.9), fireDet(0.9),
	}}

	runPipeline(t, cfg, &stubSource{frames: 3}, detector, store, channel)

	assert.Empty(t, channel.alerts())
}

func TestPipeline_ChannelFailureDoesNotStopLoop(t *testing.T) {
	store := alerts.NewStore()
	failing := &recordingChannel{ok: false}
	working := &recordingChannel{ok: true}

	detector := &stubDetector{perFrame: [][]models.Detection{
		fireDet(0.9), fireDet(0.9), fireDet(0.9), fireDet(0.9),
	}}

	runPipeline(t, testConfig(), &stubSource{frames: 4}, detector, store, failing, working)

	// Both channels see every alert despite the first one failing.
	require.NotEmpty(t, failing.alerts())
	assert.Equal(t, len(failing.alerts()), len(working.alerts()))
	assert.Equal(t, len(working.alerts()), store.PendingCount())
}

func TestPipeline_StopHaltsLoop(t *testing.T) {
	store := alerts.NewStore()

	// A large source; Stop must end the loop long before exhaustion.
	source := &stubSource{frames: 1_000_000}
	detector := &stubDetector{}

	svc := NewService(testConfig(), source, detector,
		alerts.NewDecider(2, 0), store, nil)
	svc.Start()

	time.Sleep(20 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		svc.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	assert.True(t, source.closed)
}
