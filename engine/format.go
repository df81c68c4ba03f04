package engine

import "fmt"

// FormatDuration renders whole seconds as "MM:SS", or "HH:MM:SS" once an hour is reached
// Non-positive input renders as "00:00"
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%02d:%02d", minutes, secs)
}
