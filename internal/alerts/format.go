package alerts

import (
	"fmt"
	"strings"
)

// formatConfidence renders a confidence value the way it is shown in captions
// and stored on alerts.
func formatConfidence(conf float64) string {
	return fmt.Sprintf("%.2f", conf)
}

// JoinConfidences renders a confidence list for human-readable captions.
func JoinConfidences(confidences []string) string {
	return strings.Join(confidences, ", ")
}
