package model

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// FormatClock renders d as MM:SS, or H:MM:SS from one hour on.
func FormatClock(d time.Duration) string {
	seconds := int(max(d, 0) / time.Second)
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// SessionSummary is the one-line text used for tooltips.
func SessionSummary(session, total time.Duration, sessions int, mode string) string {
	return fmt.Sprintf("cverlay %s | session %s | total %s over %s sessions",
		mode, FormatClock(session), FormatClock(total), humanize.Comma(int64(sessions)))
}

// Since renders t relative to now ("3 seconds ago"), or "never".
func Since(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}
