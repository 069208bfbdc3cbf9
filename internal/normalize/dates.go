package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day-first layouts precede month-first ones, so 05/07/2022 is 5 July.
var dateLayouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2-1-2006",
	"2006/1/2",
	"2/1/06",
	"1/2/06",
	"2-1-06",
	"2006-1-2 15:04:05",
	"2/1/2006 15:04:05",
	"2006-01-02T15:04:05",
}

var timeLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
}

// Spreadsheet serials count days from 1899-12-30. Starting one day before
// 1900-01-01 absorbs the phantom 1900-02-29 that spreadsheets carry.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

const maxSerialDay = 2958465 // 9999-12-31

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Duration returns the offset from midnight.
func (t TimeOfDay) Duration() time.Duration {
	return time.Duration(t.Hour)*time.Hour + time.Duration(t.Minute)*time.Minute + time.Duration(t.Second)*time.Second
}

// ToDate interprets a cell as a calendar date at UTC midnight. The boolean
// is false when the value is missing or matches no supported encoding.
func ToDate(value any) (time.Time, bool) {
	if IsMissing(value) {
		return time.Time{}, false
	}

	switch v := value.(type) {
	case time.Time:
		return dateOnly(v), true
	case float64:
		return fromSerialDay(v)
	case int:
		return fromSerialDay(float64(v))
	case int64:
		return fromSerialDay(float64(v))
	}

	raw := strings.TrimSpace(stringify(value))
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return dateOnly(parsed), true
		}
	}

	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return time.Time{}, false
	}
	return fromSerialDay(serial)
}

// ToTime interprets a cell as a time of day.
func ToTime(value any) (TimeOfDay, bool) {
	if IsMissing(value) {
		return TimeOfDay{}, false
	}

	switch v := value.(type) {
	case time.Time:
		return TimeOfDay{Hour: v.Hour(), Minute: v.Minute(), Second: v.Second()}, true
	case float64:
		return fromSerialFraction(v)
	}

	raw := strings.ToUpper(strings.TrimSpace(stringify(value)))
	if raw == "" {
		return TimeOfDay{}, false
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute(), Second: parsed.Second()}, true
		}
	}

	fraction, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return TimeOfDay{}, false
	}
	return fromSerialFraction(fraction)
}

func fromSerialDay(serial float64) (time.Time, bool) {
	if math.IsNaN(serial) || serial < 1 || serial > maxSerialDay {
		return time.Time{}, false
	}
	return serialEpoch.AddDate(0, 0, int(serial)), true
}

func fromSerialFraction(fraction float64) (TimeOfDay, bool) {
	if math.IsNaN(fraction) || fraction < 0 || fraction >= 1 {
		return TimeOfDay{}, false
	}
	total := int(math.Round(fraction * 24 * 60 * 60))
	if total >= 24*60*60 {
		total = 24*60*60 - 1
	}
	return TimeOfDay{
		Hour:   total / 3600,
		Minute: (total % 3600) / 60,
		Second: total % 60,
	}, true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
