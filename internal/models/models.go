package models

import (
	"context"
	"time"
)

// AlertStatus tracks the human disposition of an alert.
type AlertStatus string

const (
	AlertStatusPending   AlertStatus = "pending"
	AlertStatusConfirmed AlertStatus = "confirmed"
	AlertStatusRejected  AlertStatus = "rejected"
)

// AlertAction is an externally-originated decision on an alert.
type AlertAction string

const (
	AlertActionConfirm AlertAction = "confirm"
	AlertActionReject  AlertAction = "reject"
)

// Status maps an action to the alert status it produces.
func (a AlertAction) Status() AlertStatus {
	if a == AlertActionConfirm {
		return AlertStatusConfirmed
	}
	return AlertStatusRejected
}

// Detection is a single bounding box from the detector.
// Coordinates are pixel values with X1 < X2 and Y1 < Y2.
type Detection struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    int     `json:"class_id"`
	Label      string  `json:"label"`
}

// Frame is one decoded frame from a video source. Data is an encoded JPEG.
type Frame struct {
	Data      []byte
	FrameID   int64
	Width     int
	Height    int
	Timestamp time.Time
}

// Alert is a persisted record of one triggering detection event.
// Everything except Status is immutable after creation.
type Alert struct {
	ID          int64       `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	Source      string      `json:"source"`
	Label       string      `json:"label"`
	Count       int         `json:"count"`
	Confidences []string    `json:"confidences"`
	Image       []byte      `json:"image"` // base64 in JSON
	Status      AlertStatus `json:"status"`
}

// NotificationChannel delivers an alert to an external system. Send reports
// delivery success; failures are the channel's problem to log, never the
// pipeline's problem to handle.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, alert *Alert) bool
}

// StatusCallback applies an externally-originated (alertID, action) pair to
// the alert store. It reports whether the alert existed.
type StatusCallback func(alertID int64, action AlertAction) bool

// StatusIngress is implemented by channels that can receive external status
// decisions (e.g. the Telegram bot's callback poll loop).
type StatusIngress interface {
	StartIngress(cb StatusCallback)
	StopIngress()
}

// FrameSource produces ordered frames. Read returns (nil, io.EOF-like error)
// semantics via ok=false when the stream is exhausted.
type FrameSource interface {
	Read() (*Frame, bool)
	Close() error
}

// Detector runs inference on a single frame.
type Detector interface {
	Detect(ctx context.Context, frame *Frame) ([]Detection, error)
}

// MessagePublisher publishes alert payloads to a message broker subject.
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
