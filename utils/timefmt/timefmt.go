// Package timefmt converts between whole seconds and the clock strings shown
// in the player UI and continue-watching shelf.
package timefmt

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	completedLabel   = "Đã xem xong"
	justStartedLabel = "Mới bắt đầu"
)

// SecondsToClock renders seconds as "M:SS", or "H:MM:SS" for an hour or more.
// Zero and negative inputs render as "0:00".
func SecondsToClock(seconds int) string {
	if seconds <= 0 {
		return "0:00"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// ClockToSeconds parses "SS", "MM:SS" or "HH:MM:SS" into whole seconds. The
// second return value is false when any component is not a number or the
// shape is unrecognised; callers treat that as a validation failure.
func ClockToSeconds(text string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(text), ":")
	if len(parts) < 1 || len(parts) > 3 {
		return 0, false
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// ProgressLabel summarises a checkpoint for display: completed past 95%,
// just-started below 5%, otherwise percent plus the remaining time.
func ProgressLabel(progress, duration int) string {
	if duration <= 0 {
		return "0%"
	}

	percent := progress * 100 / duration
	switch {
	case percent >= 95:
		return completedLabel
	case percent < 5:
		return justStartedLabel
	default:
		return fmt.Sprintf("%d%% • Còn %s", percent, SecondsToClock(duration-progress))
	}
}
