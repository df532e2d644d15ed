package domain

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

var weekdayNames = map[string]string{}

func init() {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := d.String()
		weekdayNames[strings.ToLower(name)] = name
		weekdayNames[strings.ToLower(name[:3])] = name
	}
}

// NormalizeDay returns the canonical storage form of a schedule day: the
// English weekday name for weekday inputs, or the ISO date for calendar dates.
func NormalizeDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("day is required")
	}
	if name, ok := weekdayNames[strings.ToLower(s)]; ok {
		return name, nil
	}
	if d, err := time.Parse(dateLayout, s); err == nil {
		return d.Format(dateLayout), nil
	}
	return "", fmt.Errorf("invalid day %q: want a weekday name or YYYY-MM-DD", s)
}
