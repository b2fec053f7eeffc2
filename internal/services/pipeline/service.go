package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"firewatch-worker-go/internal/alerts"
	"firewatch-worker-go/internal/config"
	"firewatch-worker-go/internal/helpers"
	"firewatch-worker-go/internal/logging"
	"firewatch-worker-go/internal/metrics"
	"firewatch-worker-go/internal/models"
)

const progressLogInterval = 100

// Service is the frame loop: read, detect, debounce, snapshot, notify.
// One instance owns one source for the lifetime of a run.
type Service struct {
	cfg      *config.Config
	source   models.FrameSource
	detector models.Detector
	decider  *alerts.AlertDecider
	store    *alerts.Store
	channels []models.NotificationChannel
	log      zerolog.Logger

	stop chan struct{}
	done chan struct{}
}

func NewService(cfg *config.Config, source models.FrameSource, detector models.Detector,
	decider *alerts.AlertDecider, store *alerts.Store, channels []models.NotificationChannel) *Service {
	return &Service{
		cfg:      cfg,
		source:   source,
		detector: detector,
		decider:  decider,
		store:    store,
		channels: channels,
		log:      logging.WithSource(logging.NewServiceLogger(cfg, "pipeline"), cfg.Source),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the frame loop in its own goroutine.
func (s *Service) Start() {
	s.log.Info().
		Int("consecutive_threshold", s.cfg.ConsecutiveThreshold).
		Dur("cooldown", s.cfg.AlertCooldown).
		Msg("🚀 Starting detection pipeline")

	metrics.SetPipelineUp(true)
	go s.run()
}

// Stop signals the frame loop and waits for it to drain.
func (s *Service) Stop() {
	close(s.stop)
	<-s.done
	metrics.SetPipelineUp(false)
}

// Done is closed when the loop exits, including on source exhaustion.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

func (s *Service) run() {
	defer close(s.done)
	defer s.source.Close()

	ctx := context.Background()
	framesProcessed := 0
	alertsFired := 0

	for {
		select {
		case <-s.stop:
			s.log.Info().
				Int("frames_processed", framesProcessed).
				Int("alerts_fired", alertsFired).
				Msg("Detection pipeline stopped")
			return
		default:
		}

		frame, ok := s.source.Read()
		if !ok {
			s.log.Info().
				Int("frames_processed", framesProcessed).
				Int("alerts_fired", alertsFired).
				Msg("Video source exhausted, pipeline finished")
			return
		}

		framesProcessed++
		metrics.RecordFrame(s.cfg.Source)

		detections := s.detect(ctx, frame)

		if s.decider.ShouldAlert(len(detections) > 0) {
			s.fireAlert(ctx, frame, detections)
			alertsFired++
		}

		if framesProcessed%progressLogInterval == 0 {
			s.log.Info().
				Int("frames_processed", framesProcessed).
				Int("alerts_fired", alertsFired).
				Int("pending_alerts", s.store.PendingCount()).
				Msg("Pipeline progress")
		}
	}
}

// detect runs inference and applies the confidence and class filters. A
// detector error yields an empty result for this frame; the loop keeps going.
func (s *Service) detect(ctx context.Context, frame *models.Frame) []models.Detection {
	start := time.Now()
	raw, err := s.detector.Detect(ctx, frame)
	metrics.RecordDetectionLatency(s.cfg.Source, float64(time.Since(start).Milliseconds()))

	if err != nil {
		s.log.Warn().
			Err(err).
			Int64("frame_id", frame.FrameID).
			Msg("Detector failed on frame, treating as no detections")
		return nil
	}

	filtered := make([]models.Detection, 0, len(raw))
	for _, det := range raw {
		if det.Confidence < s.cfg.ConfThreshold {
			continue
		}
		if !s.classAllowed(det.ClassID) {
			continue
		}
		filtered = append(filtered, det)
		metrics.RecordDetection(s.cfg.Source, det.Label)
	}
	return filtered
}

func (s *Service) classAllowed(classID int) bool {
	if len(s.cfg.TargetClasses) == 0 {
		return true
	}
	for _, id := range s.cfg.TargetClasses {
		if id == classID {
			return true
		}
	}
	return false
}

// fireAlert snapshots the triggering frame, persists the alert and fans it
// out to every channel. Channel failures are logged per channel and never
// block the loop or each other's delivery.
func (s *Service) fireAlert(ctx context.Context, frame *models.Frame, detections []models.Detection) {
	snapshot, err := helpers.AnnotateFrame(frame, detections, s.cfg.OutputQuality)
	if err != nil {
		s.log.Warn().
			Err(err).
			Int64("frame_id", frame.FrameID).
			Msg("Failed to annotate snapshot, using raw frame")
		snapshot = frame.Data
	}

	id := s.store.Add(snapshot, detections, s.cfg.Source)
	alert := s.store.Get(id)

	metrics.RecordAlertFired(s.cfg.Source, alert.Label)
	metrics.SetPendingAlerts(s.store.PendingCount())

	for _, ch := range s.channels {
		ok := ch.Send(ctx, alert)
		metrics.RecordChannelSend(ch.Name(), ok)
		if !ok {
			s.log.Warn().
				Int64("alert_id", id).
				Str("channel", ch.Name()).
				Msg("Notification channel delivery failed")
		}
	}

	s.log.Info().
		Int64("alert_id", id).
		Str("label", alert.Label).
		Int("count", alert.Count).
		Int64("frame_id", frame.FrameID).
		Msg("🚨 Alert fired")
}
