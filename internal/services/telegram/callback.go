package telegram

import (
	"strconv"
	"strings"

	"firewatch-worker-go/internal/models"
)

// parseCallbackData splits a "<action>_<alertID>" button token. ok is false
// for anything that is not exactly a known action, an underscore and a
// decimal id.
func parseCallbackData(data string) (int64, models.AlertAction, bool) {
	action, idPart, found := strings.Cut(data, "_")
	if !found {
		return 0, "", false
	}

	switch models.AlertAction(action) {
	case models.AlertActionConfirm, models.AlertActionReject:
	default:
		return 0, "", false
	}

	alertID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", false
	}

	return alertID, models.AlertAction(action), true
}
