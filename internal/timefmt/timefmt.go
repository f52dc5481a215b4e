// Package timefmt converts sunrise/sunset timestamps, wind angles and
// durations into display values.
//
// Two simplified daylight-saving rules live here and are deliberately kept
// apart: the month-window rule used for minute-of-day arithmetic, and the
// last-Sunday rule used when showing sunrise and sunset clock times.
// Neither matches the calendar exactly; changing either one changes
// historical output.
package timefmt

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

var cardinals = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Cardinals returns the eight direction labels in sector order.
func Cardinals() []string {
	out := make([]string, len(cardinals))
	copy(out, cardinals[:])
	return out
}

// ParseLocal parses a naive ISO-8601 timestamp. Any zone suffix is dropped
// and the wall clock is returned in UTC.
func ParseLocal(ts string) (time.Time, error) {
	s := strings.TrimSpace(ts)
	s = strings.Replace(s, " ", "T", 1)
	if len(s) > 19 {
		s = s[:19]
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", ts)
}

// InSimpleDSTWindow is the month-window approximation used for minute
// arithmetic: April to September, plus 31 March, plus October before the 31st.
func InSimpleDSTWindow(date time.Time) bool {
	m, d := int(date.Month()), date.Day()
	return (m > 3 && m < 10) || (m == 3 && d >= 31) || (m == 10 && d < 31)
}

// LastSundayOfMarch returns 31 March minus the weekday of 31 March.
func LastSundayOfMarch(year int) time.Time {
	return lastSunday(year, time.March)
}

// LastSundayOfOctober returns 31 October minus the weekday of 31 October.
func LastSundayOfOctober(year int) time.Time {
	return lastSunday(year, time.October)
}

func lastSunday(year int, month time.Month) time.Time {
	end := time.Date(year, month, 31, 0, 0, 0, 0, time.UTC)
	return time.Date(year, month, 31-int(end.Weekday()), 0, 0, 0, 0, time.UTC)
}

// InLastSundayDSTWindow reports whether the calendar date falls between the
// last Sunday of March (inclusive) and the last Sunday of October (exclusive).
func InLastSundayDSTWindow(date time.Time) bool {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	start := LastSundayOfMarch(date.Year())
	end := LastSundayOfOctober(date.Year())
	return !day.Before(start) && day.Before(end)
}

// MinutesSinceMidnight returns the wall-clock minute of the timestamp,
// shifted by an hour when date is inside the month-window DST rule.
func MinutesSinceMidnight(ts string, date time.Time) (int, error) {
	t, err := ParseLocal(ts)
	if err != nil {
		return 0, err
	}
	minutes := t.Hour()*60 + t.Minute()
	if InSimpleDSTWindow(date) {
		minutes += 60
	}
	return minutes % minutesPerDay, nil
}

// SunDisplayTime formats a sunrise or sunset timestamp as HH:MM, adding an
// hour under the last-Sunday rule.
func SunDisplayTime(ts string, date time.Time) (string, error) {
	t, err := ParseLocal(ts)
	if err != nil {
		return "", err
	}
	minutes := t.Hour()*60 + t.Minute()
	if InLastSundayDSTWindow(date) {
		minutes += 60
	}
	return FormatTime(minutes % minutesPerDay), nil
}

// FormatTime renders a minute-of-day as zero-padded HH:MM.
func FormatTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DegreesToCardinal maps an angle onto one of eight 45° sectors using
// round(deg/45) mod 8.
func DegreesToCardinal(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return cardinals[int(math.Round(deg/45))%8]
}

// SecondsToHoursMinutes renders a duration as "Hh Mmin". Leftover seconds
// are truncated.
func SecondsToHoursMinutes(seconds float64) string {
	total := int64(math.Floor(seconds))
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	return fmt.Sprintf("%dh %dmin", h, m)
}

// HoursToHoursMinutes renders an hour-valued duration the same way.
func HoursToHoursMinutes(hours float64) string {
	return SecondsToHoursMinutes(hours * 3600)
}

// Split is the day/night share of a 24h day.
type Split struct {
	DaylightHours float64 `json:"daylightHours"`
	NightHours    float64 `json:"nightHours"`
}

// fallbackSplit is returned whenever sunrise/sunset cannot be used.
var fallbackSplit = Split{DaylightHours: 0, NightHours: 24}

// DaylightSplit derives daylight and night hours from sunrise and sunset.
// On malformed input it returns {0, 24} together with the error so the
// caller can log it and keep going.
func DaylightSplit(sunrise, sunset string) (Split, error) {
	rise, err := ParseLocal(sunrise)
	if err != nil {
		return fallbackSplit, fmt.Errorf("sunrise: %w", err)
	}
	set, err := ParseLocal(sunset)
	if err != nil {
		return fallbackSplit, fmt.Errorf("sunset: %w", err)
	}
	daylight := set.Sub(rise).Hours()
	if daylight < 0 || daylight > 24 {
		return fallbackSplit, fmt.Errorf("sunset %q not within a day of sunrise %q", sunset, sunrise)
	}
	return Split{DaylightHours: daylight, NightHours: 24 - daylight}, nil
}
