package capture

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"firewatch-worker-go/internal/helpers"
	"firewatch-worker-go/internal/models"
)

const (
	maxConsecutiveErrors = 10
	readRetryDelay       = 100 * time.Millisecond
)

// VideoStreamer reads frames from a video file, RTSP URL or webcam device and
// hands them out as JPEG-encoded frames. It is a pull-based source; the
// pipeline drives the read cadence.
type VideoStreamer struct {
	source  string
	quality int

	cap     *gocv.VideoCapture
	img     gocv.Mat
	frameID int64
}

// NewVideoStreamer opens the given source. A numeric source is treated as a
// webcam device index, anything else as a file path or stream URL.
func NewVideoStreamer(source string, quality int) (*VideoStreamer, error) {
	var cap *gocv.VideoCapture
	var err error

	if deviceID, convErr := strconv.Atoi(source); convErr == nil {
		log.Info().Int("device_id", deviceID).Msg("Opening webcam device")
		cap, err = gocv.OpenVideoCapture(deviceID)
	} else {
		log.Info().Str("source", source).Msg("Opening video source")
		cap, err = gocv.OpenVideoCapture(source)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open video source %s: %w", source, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("video capture is not opened for source %s", source)
	}

	// Minimal buffer keeps live streams close to real time
	cap.Set(gocv.VideoCaptureBufferSize, 1)

	log.Info().
		Str("source", source).
		Float64("fps", cap.Get(gocv.VideoCaptureFPS)).
		Float64("width", cap.Get(gocv.VideoCaptureFrameWidth)).
		Float64("height", cap.Get(gocv.VideoCaptureFrameHeight)).
		Msg("VideoCapture opened successfully")

	return &VideoStreamer{
		source:  source,
		quality: quality,
		cap:     cap,
		img:     gocv.NewMat(),
	}, nil
}

// Read returns the next frame, or ok=false when the stream is exhausted or
// repeatedly failing. Transient read errors are retried a bounded number of
// times before giving up.
func (s *VideoStreamer) Read() (*models.Frame, bool) {
	consecutiveErrors := 0

	for {
		if !s.cap.Read(&s.img) || s.img.Empty() {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				log.Warn().
					Str("source", s.source).
					Int("consecutive_errors", consecutiveErrors).
					Msg("Giving up on video source after repeated read failures")
				return nil, false
			}
			time.Sleep(readRetryDelay)
			continue
		}

		data, err := helpers.EncodeJPEG(s.img, s.quality)
		if err != nil {
			log.Warn().
				Err(err).
				Str("source", s.source).
				Msg("Failed to encode captured frame, skipping")
			continue
		}

		s.frameID++
		return &models.Frame{
			Data:      data,
			FrameID:   s.frameID,
			Width:     s.img.Cols(),
			Height:    s.img.Rows(),
			Timestamp: time.Now(),
		}, true
	}
}

// Close releases the capture device and frame buffer.
func (s *VideoStreamer) Close() error {
	s.img.Close()
	return s.cap.Close()
}
