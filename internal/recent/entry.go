package recent

import (
	"fmt"
	"strings"
	"time"

	"github.com/weatho/weatho/internal/weather"
)

// Entry is the persisted form of one recently viewed location.
type Entry struct {
	weather.Location
	Timestamp   int64 `json:"timestamp"` // epoch milliseconds of last selection
	SearchCount int   `json:"searchCount"`
}

// Search is the derived view handed to consumers. DisplayName and TimeAgo
// are recomputed on every read and never persisted.
type Search struct {
	Entry
	DisplayName string `json:"displayName"`
	TimeAgo     string `json:"timeAgo"`
}

func displayName(loc weather.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.Name, loc.State, loc.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func timeAgo(timestampMs int64, now time.Time) string {
	diff := now.Sub(time.UnixMilli(timestampMs))

	minutes := int(diff.Minutes())
	hours := int(diff.Hours())
	days := int(diff.Hours() / 24)

	switch {
	case minutes < 1:
		return "Just now"
	case minutes < 60:
		return fmt.Sprintf("%dm ago", minutes)
	case hours < 24:
		return fmt.Sprintf("%dh ago", hours)
	case days < 7:
		return fmt.Sprintf("%dd ago", days)
	default:
		return time.UnixMilli(timestampMs).Format("Jan 2, 2006")
	}
}
