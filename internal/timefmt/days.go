package timefmt

import (
	"fmt"
	"strings"
	"time"
)

// DayNames are the short weekday names providers publish their open days in
var DayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var dayValues = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
	"sun": time.Sunday,
}

// ParseDay reads a short weekday name, case-insensitively
func ParseDay(name string) (time.Weekday, error) {
	day, ok := dayValues[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown day %q", name)
	}
	return day, nil
}

// ParseDays reads a list of short weekday names, dropping duplicates
func ParseDays(names []string) ([]time.Weekday, error) {
	seen := make(map[time.Weekday]bool, len(names))
	out := make([]time.Weekday, 0, len(names))
	for _, name := range names {
		day, err := ParseDay(name)
		if err != nil {
			return nil, err
		}
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	return out, nil
}

// Windows cuts [opens, closes) into back-to-back windows of step minutes,
// each returned as a "HH:MM:SS" pair. A trailing window shorter than step
// is dropped; an error is returned when not even one window fits.
func Windows(opens, closes string, step int) ([]Range, error) {
	if step <= 0 {
		return nil, fmt.Errorf("slot interval must be positive, got %d", step)
	}
	start, err := wireMinutes(opens)
	if err != nil {
		return nil, err
	}
	end, err := wireMinutes(closes)
	if err != nil {
		return nil, err
	}
	if end <= start {
		return nil, fmt.Errorf("closing time %s is not after opening time %s", closes, opens)
	}

	var out []Range
	for m := start; m+step <= end; m += step {
		out = append(out, Range{Start: clock(m), End: clock(m + step)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no %d minute slot fits between %s and %s", step, opens, closes)
	}
	return out, nil
}

func wireMinutes(value string) (int, error) {
	wire, err := NormalizeWire(value)
	if err != nil {
		return 0, err
	}
	t, err := time.Parse("15:04:05", wire)
	if err != nil {
		return 0, malformed(value)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d:00", minutes/60, minutes%60)
}
