// Package timefmt converts between the 12-hour labels shown to customers
// ("2:00 PM") and the 24-hour wire format the backend stores ("14:00:00").
package timefmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tellme/internal/core"
)

// RangeSeparator separates the two halves of a slot label
const RangeSeparator = " - "

var (
	labelPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2}) *([AaPp][Mm])$`)
	wirePattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// Range is a parsed "start - end" label
type Range struct {
	Start string
	End   string
}

// To24Hour converts "H:MM AM|PM" to "HH:MM:00"
func To24Hour(label string) (string, error) {
	m := labelPattern.FindStringSubmatch(strings.TrimSpace(label))
	if m == nil {
		return "", malformed(label)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour < 1 || hour > 12 || minute > 59 {
		return "", malformed(label)
	}

	pm := strings.EqualFold(m[3], "PM")
	switch {
	case !pm && hour == 12:
		hour = 0
	case pm && hour != 12:
		hour += 12
	}

	return fmt.Sprintf("%02d:%02d:00", hour, minute), nil
}

// To24HourLayout converts a 12-hour label by parsing it as a Go time layout.
// It must agree with To24Hour for every valid label.
func To24HourLayout(label string) (string, error) {
	value := strings.ToUpper(strings.TrimSpace(label))
	for _, layout := range []string{"3:04 PM", "3:04PM"} {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		if h := hourField(value); h < 1 || h > 12 {
			break
		}
		return t.Format("15:04:05"), nil
	}
	return "", malformed(label)
}

// To12Hour renders a wire time ("14:00:00") as a label ("2:00 PM")
func To12Hour(wire string) (string, error) {
	normalized, err := NormalizeWire(wire)
	if err != nil {
		return "", err
	}
	t, err := time.Parse("15:04:05", normalized)
	if err != nil {
		return "", malformed(wire)
	}
	return t.Format("3:04 PM"), nil
}

// SplitRangeLabel splits "H:MM AM - H:MM PM" on the literal separator
func SplitRangeLabel(label string) (Range, error) {
	start, end, ok := strings.Cut(label, RangeSeparator)
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if !ok || start == "" || end == "" {
		return Range{}, malformed(label)
	}
	return Range{Start: start, End: end}, nil
}

// NormalizeWire accepts "H:MM", "HH:MM:SS" or a 12-hour label and returns
// the canonical "HH:MM:SS" form
func NormalizeWire(value string) (string, error) {
	value = strings.TrimSpace(value)
	m := wirePattern.FindStringSubmatch(value)
	if m == nil {
		return To24Hour(value)
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	second := 0
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 || second > 59 {
		return "", malformed(value)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second), nil
}

// hourField reads the leading hour digits; time.Parse accepts hour 0 for
// the 12-hour layout, which no customer-facing label uses
func hourField(value string) int {
	head, _, _ := strings.Cut(value, ":")
	h, err := strconv.Atoi(head)
	if err != nil {
		return -1
	}
	return h
}

func malformed(label string) error {
	return fmt.Errorf("%w: %q", core.ErrMalformedTimeLabel, label)
}
