// Package openinghours turns the free-text collection schedules published
// with disposal points into a structured weekly schedule.
package openinghours

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Weekday indexes the week starting on Monday.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// WeekdayOf converts a time.Weekday (Sunday first) to a Monday-first index.
func WeekdayOf(d time.Weekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// TimeRange is an [open, close] pair of "HH:MM" strings. Close may be "24:00".
type TimeRange [2]string

func (r TimeRange) Open() string  { return r[0] }
func (r TimeRange) Close() string { return r[1] }

// Contains reports whether minute-of-day m falls inside the range on the day
// it opens. A close time at or before the open time runs past midnight; the
// part after midnight belongs to the next day, see Spills.
func (r TimeRange) Contains(m int) bool {
	open, closing, ok := r.bounds()
	if !ok {
		return false
	}
	if closing <= open {
		return m >= open
	}
	return m >= open && m < closing
}

// Spills reports whether minute-of-day m on the following day is still
// covered by an overnight range.
func (r TimeRange) Spills(m int) bool {
	open, closing, ok := r.bounds()
	if !ok || closing > open {
		return false
	}
	return m < closing
}

func (r TimeRange) bounds() (int, int, bool) {
	open, err := minutes(r[0])
	if err != nil {
		return 0, 0, false
	}
	closing, err := minutes(r[1])
	if err != nil {
		return 0, 0, false
	}
	return open, closing, true
}

// Schedule maps each weekday to its hours. Days absent from the map are
// closed or unknown. A nil Schedule means no schedule could be extracted.
type Schedule map[Weekday]TimeRange

// IsOpenAt reports whether the schedule is open at t, read in t's location.
func (s Schedule) IsOpenAt(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	today := WeekdayOf(t.Weekday())
	if r, ok := s[today]; ok && r.Contains(m) {
		return true
	}
	r, ok := s[(today+6)%7]
	return ok && r.Spills(m)
}

func (s Schedule) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	out := make(map[string]TimeRange, len(s))
	for day, r := range s {
		out[day.String()] = r
	}
	return json.Marshal(out)
}

func (s *Schedule) UnmarshalJSON(data []byte) error {
	var raw map[string]TimeRange
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Schedule, len(raw))
	for name, r := range raw {
		day, ok := weekdayByName(name)
		if !ok {
			return fmt.Errorf("openinghours: unknown weekday %q", name)
		}
		out[day] = r
	}
	*s = out
	return nil
}

// Value stores the schedule as a JSON document, or NULL.
func (s Schedule) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, eris.Wrap(err, "openinghours: marshal schedule")
	}
	return string(b), nil
}

func (s *Schedule) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return s.UnmarshalJSON(v)
	case string:
		return s.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("openinghours: cannot scan %T", src)
	}
}

func weekdayByName(name string) (Weekday, bool) {
	for i, n := range weekdayNames {
		if n == name {
			return Weekday(i), true
		}
	}
	return 0, false
}

func minutes(hhmm string) (int, error) {
	h, m, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0, fmt.Errorf("openinghours: malformed time %q", hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, err
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, err
	}
	if minute < 0 || minute > 59 || hour < 0 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("openinghours: time %q out of range", hhmm)
	}
	return hour*60 + minute, nil
}
