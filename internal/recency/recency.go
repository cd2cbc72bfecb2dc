// Package recency classifies aircraft by the time elapsed since they were last seen.
package recency

import (
	"fmt"
	"time"
)

const (
	// ActiveWindow bounds the aggregate "active" count over the whole snapshot.
	ActiveWindow = time.Hour
	// RecentWindow bounds the per-row "Active" badge.
	RecentWindow = 5 * time.Minute
)

// Within reports whether lastSeen is strictly less than window before now
func Within(lastSeen, now time.Time, window time.Duration) bool {
	return now.Sub(lastSeen) < window
}

// IsActive applies ActiveWindow
func IsActive(lastSeen, now time.Time) bool {
	return Within(lastSeen, now, ActiveWindow)
}

// IsRecent applies RecentWindow
func IsRecent(lastSeen, now time.Time) bool {
	return Within(lastSeen, now, RecentWindow)
}

// TimeAgo renders the elapsed time since t in whole minutes, hours or days.
// Timestamps in the future read as "Just now".
func TimeAgo(t, now time.Time) string {
	mins := int64(now.Sub(t) / time.Minute)
	if mins < 1 {
		return "Just now"
	}
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}
