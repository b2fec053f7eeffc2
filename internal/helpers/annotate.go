package helpers

import (
	"fmt"
	"image"
	"image/color"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"firewatch-worker-go/internal/models"
)

const (
	boxThickness  = 2
	labelFontSize = 0.6

	// DefaultJPEGQuality is used when the caller passes quality <= 0
	DefaultJPEGQuality = 85
)

// Box colors per detection label (RGBA, gocv converts to BGR internally)
var (
	colorFire    = color.RGBA{R: 255, G: 69, B: 0, A: 0}
	colorSmoke   = color.RGBA{R: 128, G: 128, B: 128, A: 0}
	colorDefault = color.RGBA{R: 0, G: 255, B: 0, A: 0}
)

// labelColor picks the box color for a detection label
func labelColor(label string) color.RGBA {
	switch label {
	case "fire":
		return colorFire
	case "smoke":
		return colorSmoke
	default:
		return colorDefault
	}
}

// isJPEGData checks if the byte slice contains JPEG data by checking magic bytes
func isJPEGData(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	// JPEG magic bytes: FF D8
	return data[0] == 0xFF && data[1] == 0xD8
}

// AnnotateFrame draws detection boxes and labels onto a JPEG frame and
// returns the annotated frame re-encoded as JPEG. The input frame is not
// modified. With no detections the input is returned as-is.
func AnnotateFrame(frame *models.Frame, detections []models.Detection, quality int) ([]byte, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, fmt.Errorf("empty frame data")
	}
	if len(detections) == 0 {
		return frame.Data, nil
	}
	if !isJPEGData(frame.Data) {
		return nil, fmt.Errorf("frame data is not JPEG")
	}

	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded frame is empty")
	}

	for _, det := range detections {
		rect := clampRect(det, mat.Cols(), mat.Rows())
		if rect.Empty() {
			log.Debug().
				Str("label", det.Label).
				Int64("frame_id", frame.FrameID).
				Msg("Skipping zero-area detection box")
			continue
		}

		c := labelColor(det.Label)
		gocv.Rectangle(&mat, rect, c, boxThickness)

		caption := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		origin := image.Pt(rect.Min.X, rect.Min.Y-6)
		if origin.Y < 12 {
			origin.Y = rect.Min.Y + 16
		}
		gocv.PutText(&mat, caption, origin, gocv.FontHersheySimplex, labelFontSize, c, boxThickness)
	}

	return EncodeJPEG(mat, quality)
}

// EncodeJPEG encodes a Mat as JPEG at the given quality
func EncodeJPEG(mat gocv.Mat, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame as JPEG: %w", err)
	}
	defer buf.Close()

	// GetBytes returns a view into the native buffer, copy before Close
	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// clampRect converts detection pixel coordinates to an image.Rectangle
// clipped to the frame bounds
func clampRect(det models.Detection, width, height int) image.Rectangle {
	x1 := clamp(int(det.X1), 0, width-1)
	y1 := clamp(int(det.Y1), 0, height-1)
	x2 := clamp(int(det.X2), 0, width)
	y2 := clamp(int(det.Y2), 0, height)
	if x2 <= x1 || y2 <= y1 {
		return image.Rectangle{}
	}
	return image.Rect(x1, y1, x2, y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
