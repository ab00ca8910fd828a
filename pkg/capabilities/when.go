package capabilities

import (
	"fmt"
	"strings"
	"time"
)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02 3:04pm",
	"2006-01-02 3pm",
}

var clockLayouts = []string{"15:04", "3:04pm", "3pm", "3:04 pm", "3 pm"}

// parseWhen understands absolute timestamps, plain dates (midnight) and
// "today"/"tomorrow", optionally followed by "at" and a clock time.
func parseWhen(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	loc := now.Location()
	for _, candidate := range []string{s, strings.ToLower(s)} {
		for _, layout := range absoluteLayouts {
			if t, err := time.ParseInLocation(layout, candidate, loc); err == nil {
				return t, nil
			}
		}
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return t, nil
	}
	s = strings.ToLower(s)

	day, rest, _ := strings.Cut(s, " ")
	var base time.Time
	switch day {
	case "today", "now":
		base = midnight(now)
		if day == "now" && rest == "" {
			return now, nil
		}
	case "tomorrow":
		base = midnight(now).AddDate(0, 0, 1)
	default:
		return time.Time{}, fmt.Errorf("cannot understand time %q; use YYYY-MM-DD HH:MM, today or tomorrow", s)
	}

	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "at "))
	if rest == "" {
		return base, nil
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, rest); err == nil {
			return base.Add(time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute), nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot understand clock time %q", rest)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
