// Package timeutil converts between the wire/display time formats used at the
// API boundary ("HH:MM" 24-hour, "h:MM AM/PM" display) and the minute-of-day
// integers the scheduling core computes with.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseMinutes parses a 24-hour "HH:MM" string into minutes from midnight.
func ParseMinutes(s string) (int, bool) {
	h, m, ok := splitClock(s)
	if !ok || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// FormatMinutes renders minutes from midnight as 24-hour "HH:MM".
func FormatMinutes(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// To12Hour converts "HH:MM" to "h:MM AM" / "h:MM PM" display form.
// Hour 0 becomes 12 AM; hour 12 stays 12 PM.
func To12Hour(s string) string {
	h, m, ok := splitClock(s)
	if !ok {
		return s
	}
	period := "AM"
	switch {
	case h == 0:
		h = 12
	case h == 12:
		period = "PM"
	case h > 12:
		h -= 12
		period = "PM"
	}
	return fmt.Sprintf("%d:%02d %s", h, m, period)
}

// To24Hour converts "h:MM AM/PM" display form back to "HH:MM".
// "12 AM" maps to hour 0; "12 PM" stays 12.
func To24Hour(s string) string {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)
	pm := strings.HasSuffix(upper, "PM")
	am := strings.HasSuffix(upper, "AM")
	if !am && !pm {
		return trimmed
	}
	clock := strings.TrimSpace(upper[:len(upper)-2])
	h, m, ok := splitClock(clock)
	if !ok {
		return trimmed
	}
	if pm && h < 12 {
		h += 12
	}
	if am && h == 12 {
		h = 0
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// TimeOptions enumerates every 30-minute mark from startHour:00 through
// endHour:00 inclusive. The trailing ":30" at endHour is omitted so the list
// ends exactly on the hour. Order is deterministic ascending.
func TimeOptions(startHour, endHour int, use12Hour bool) []string {
	var out []string
	for h := startHour; h <= endHour; h++ {
		for _, m := range []int{0, 30} {
			if h == endHour && m == 30 {
				break
			}
			t := fmt.Sprintf("%02d:%02d", h, m)
			if use12Hour {
				t = To12Hour(t)
			}
			out = append(out, t)
		}
	}
	return out
}

// ParseDisplayTime normalizes a user-supplied time string to "HH:MM".
// 24-hour input passes through, AM/PM input is converted, and anything else
// degrades to best-effort digit extraction with "00:00" as the last resort.
// It never fails; this is a UI-facing convenience.
func ParseDisplayTime(s string) string {
	trimmed := strings.TrimSpace(s)
	upper := strings.ToUpper(trimmed)
	if strings.Contains(upper, "AM") || strings.Contains(upper, "PM") {
		if out := To24Hour(trimmed); out != trimmed {
			return out
		}
	}
	if h, m, ok := splitClock(trimmed); ok && h >= 0 && h <= 23 && m >= 0 && m <= 59 {
		return fmt.Sprintf("%02d:%02d", h, m)
	}

	// Best effort: first run of digits is the hour, second the minutes.
	var groups []int
	cur := -1
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			if cur < 0 {
				cur = 0
			}
			cur = cur*10 + int(r-'0')
			continue
		}
		if cur >= 0 {
			groups = append(groups, cur)
			cur = -1
		}
	}
	if cur >= 0 {
		groups = append(groups, cur)
	}

	h, m := 0, 0
	if len(groups) > 0 && groups[0] <= 23 {
		h = groups[0]
	}
	if len(groups) > 1 && groups[1] <= 59 {
		m = groups[1]
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func splitClock(s string) (hour, minute int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}
