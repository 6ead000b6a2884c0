package render

import (
	"fmt"
	"time"
)

// ParseTime parses an API timestamp. Invalid input yields the zero
// time rather than an error so templates stay total.
func ParseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// TimeAgo formats how long ago t was, in the largest sensible unit.
func TimeAgo(t time.Time) string {
	return timeAgoAt(t, time.Now())
}

func timeAgoAt(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	delta := now.Sub(t)
	if delta < 0 {
		delta = 0
	}

	days := int(delta.Hours()) / 24
	if days == 0 {
		hours := int(delta.Hours())
		if hours == 0 {
			mins := int(delta.Minutes())
			if mins == 0 {
				secs := int(delta.Seconds())
				if secs == 0 {
					return "now"
				}
				return plural(secs, "second")
			}
			return plural(mins, "minute")
		}
		return plural(hours, "hour")
	}
	return plural(days, "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
