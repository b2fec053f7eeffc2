package alerts

import (
	"time"

	"github.com/rs/zerolog/log"
)

// NewDecider creates a decider with the given consecutive threshold and
// cooldown. A threshold of zero or less means every detecting frame passes
// the consecutive gate; only the cooldown limits firing then. That is a
// supported configuration, not an error.
func NewDecider(consecutiveThreshold int, cooldown time.Duration) *AlertDecider {
	return &AlertDecider{
		consecutiveThreshold: consecutiveThreshold,
		cooldown:             cooldown,
		now:                  time.Now,
	}
}

// AlertDecider is the per-pipeline debounce state machine. It converts a
// stream of per-frame "has detection" booleans into discrete alert triggers:
// an alert fires only after an unbroken run of detecting frames reaches the
// consecutive threshold, and never twice within the cooldown window.
// lastAlertTime starts at the zero instant so the first qualifying run always
// clears the cooldown gate.
//
// One instance per pipeline run, called from the frame loop only. Not safe
// for concurrent use and not meant to be.
type AlertDecider struct {
	consecutiveThreshold int
	cooldown             time.Duration

	consecutiveCount int
	lastAlertTime    time.Time

	// now is swappable for simulated-time tests.
	now func() time.Time
}

// ShouldAlert consumes one frame's detection flag and reports whether an
// alert fires on this frame. Must be called exactly once per processed frame,
// in frame order.
func (d *AlertDecider) ShouldAlert(hasDetection bool) bool {
	if !hasDetection {
		// Any gap resets the run; the evidence must be unbroken.
		d.consecutiveCount = 0
		return false
	}

	d.consecutiveCount++

	if d.consecutiveCount < d.consecutiveThreshold {
		return false
	}

	if d.now().Sub(d.lastAlertTime) < d.cooldown {
		return false
	}

	d.lastAlertTime = d.now()
	d.consecutiveCount = 0

	log.Debug().
		Int("threshold", d.consecutiveThreshold).
		Dur("cooldown", d.cooldown).
		Msg("Alert trigger fired")

	return true
}
