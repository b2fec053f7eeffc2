package messaging

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/rs/zerolog/log"

	"firewatch-worker-go/internal/models"
)

// AlertChannel fans alerts out to downstream consumers over NATS. Delivery is
// fire-and-forget; consumers decide what to do with the payload.
type AlertChannel struct {
	publisher models.MessagePublisher
	subject   string
}

// alertMessage is the wire payload published per alert.
type alertMessage struct {
	AlertID     int64     `json:"alert_id"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	Label       string    `json:"label"`
	Count       int       `json:"count"`
	Confidences []string  `json:"confidences"`
	Image       string    `json:"image,omitempty"` // base64 JPEG
}

func NewAlertChannel(publisher models.MessagePublisher, subject string) *AlertChannel {
	return &AlertChannel{
		publisher: publisher,
		subject:   subject,
	}
}

func (c *AlertChannel) Name() string {
	return "nats"
}

// Send publishes the alert to the configured subject. Reports false on
// publish failure; the broker's redelivery is not our concern.
func (c *AlertChannel) Send(ctx context.Context, alert *models.Alert) bool {
	msg := alertMessage{
		AlertID:     alert.ID,
		Timestamp:   alert.Timestamp,
		Source:      alert.Source,
		Label:       alert.Label,
		Count:       alert.Count,
		Confidences: alert.Confidences,
	}
	if len(alert.Image) > 0 {
		msg.Image = base64.StdEncoding.EncodeToString(alert.Image)
	}

	if err := c.publisher.Publish(c.subject, msg); err != nil {
		log.Error().
			Err(err).
			Int64("alert_id", alert.ID).
			Str("subject", c.subject).
			Msg("Failed to publish alert to NATS")
		return false
	}

	log.Debug().
		Int64("alert_id", alert.ID).
		Str("subject", c.subject).
		Msg("Alert published to NATS")
	return true
}
