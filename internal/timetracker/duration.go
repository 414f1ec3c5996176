package timetracker

import (
	"strconv"
	"strings"
)

// ExactDurationFormatter renders second counts the way the report table
// shows them: largest unit first, zero units omitted.
type ExactDurationFormatter struct{}

// ExactDuration formats seconds as "2h 30m 10s". Zero and negative
// inputs come back as "0m".
func (ExactDurationFormatter) ExactDuration(seconds int64) string {
	if seconds <= 0 {
		return "0m"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	parts := make([]string, 0, 3)
	if h > 0 {
		parts = append(parts, strconv.FormatInt(h, 10)+"h")
	}
	if m > 0 {
		parts = append(parts, strconv.FormatInt(m, 10)+"m")
	}
	if s > 0 {
		parts = append(parts, strconv.FormatInt(s, 10)+"s")
	}
	return strings.Join(parts, " ")
}
