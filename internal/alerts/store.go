package alerts

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/metrics"
	"firewatch-worker-go/internal/models"
)

// fallbackLabel is used when a trigger carries no labeled detections.
const fallbackLabel = "fire"

// Store is the thread-safe, in-memory alert repository. It is the single
// source of truth for alert status; every component touches it only through
// these methods. One mutex guards the id counter and the alert slice.
type Store struct {
	mu        sync.Mutex
	alerts    []*models.Alert
	idCounter int64
}

// NewStore creates an empty alert store.
func NewStore() *Store {
	return &Store{
		alerts: make([]*models.Alert, 0),
	}
}

// Add creates a new pending alert from a triggering frame and returns its id.
// Ids are strictly increasing and never reused. Concurrent Add calls never
// observe the same id.
func (s *Store) Add(image []byte, detections []models.Detection, source string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.idCounter++
	id := s.idCounter

	confidences := make([]string, 0, len(detections))
	for _, det := range detections {
		confidences = append(confidences, formatConfidence(det.Confidence))
	}

	alert := &models.Alert{
		ID:          id,
		Timestamp:   time.Now(),
		Source:      source,
		Label:       primaryLabel(detections),
		Count:       len(detections),
		Confidences: confidences,
		Image:       image,
		Status:      models.AlertStatusPending,
	}
	s.alerts = append(s.alerts, alert)

	log.Info().
		Int64("alert_id", id).
		Str("source", source).
		Str("label", alert.Label).
		Int("count", alert.Count).
		Msg("Alert added to store")

	return id
}

// Get returns a copy of the alert with the given id, or nil.
func (s *Store) Get(id int64) *models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id {
			cp := *a
			return &cp
		}
	}
	return nil
}

// GetPending returns all pending alerts in creation order.
func (s *Store) GetPending() []*models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := make([]*models.Alert, 0)
	for _, a := range s.alerts {
		if a.Status == models.AlertStatusPending {
			cp := *a
			pending = append(pending, &cp)
		}
	}
	return pending
}

// GetAll returns up to limit most recent alerts, most-recent-first.
func (s *Store) GetAll(limit int) []*models.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.alerts)
	if limit > 0 && limit < n {
		n = limit
	}

	recent := make([]*models.Alert, 0, n)
	for i := len(s.alerts) - 1; i >= 0 && len(recent) < n; i-- {
		cp := *s.alerts[i]
		recent = append(recent, &cp)
	}
	return recent
}

// UpdateStatus sets the status of an existing alert. Only confirmed and
// rejected are accepted; pending is store-assigned at creation and never a
// valid update. Returns false when the id is unknown or the status invalid.
// Last write wins; no history is kept.
func (s *Store) UpdateStatus(id int64, status models.AlertStatus) bool {
	if status != models.AlertStatusConfirmed && status != models.AlertStatusRejected {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ID == id {
			a.Status = status
			log.Info().
				Int64("alert_id", id).
				Str("status", string(status)).
				Msg("Alert status updated")
			return true
		}
	}
	return false
}

// Resolve applies a human decision and keeps the resolution metrics in step.
// Every ingress (dashboard, bot) goes through here so bot-resolved alerts
// show up in the resolved counter and the pending gauge the same way.
func (s *Store) Resolve(id int64, status models.AlertStatus) bool {
	if !s.UpdateStatus(id, status) {
		return false
	}

	metrics.RecordAlertResolved(string(status))
	metrics.SetPendingAlerts(s.PendingCount())
	return true
}

// PendingCount returns the number of pending alerts.
func (s *Store) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, a := range s.alerts {
		if a.Status == models.AlertStatusPending {
			count++
		}
	}
	return count
}

// primaryLabel is the most frequent label among the detections, ties broken
// by first appearance in the list. Empty input falls back to "fire".
func primaryLabel(detections []models.Detection) string {
	if len(detections) == 0 {
		return fallbackLabel
	}

	counts := make(map[string]int, len(detections))
	order := make([]string, 0, len(detections))
	for _, det := range detections {
		if _, seen := counts[det.Label]; !seen {
			order = append(order, det.Label)
		}
		counts[det.Label]++
	}

	best := order[0]
	for _, label := range order[1:] {
		if counts[label] > counts[best] {
			best = label
		}
	}
	return best
}
