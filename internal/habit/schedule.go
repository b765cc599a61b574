package habit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Weekdays in the order the client renders them
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Schedule maps lower-case weekday names to whether the habit is due that day
type Schedule map[string]bool

// DefaultSchedule returns a schedule with every day enabled
func DefaultSchedule() Schedule {
	s := make(Schedule, len(Weekdays))
	for _, day := range Weekdays {
		s[day] = true
	}
	return s
}

// WeekdayName returns the schedule key for a time.Weekday
func WeekdayName(w time.Weekday) string {
	return strings.ToLower(w.String())
}

// On reports whether the schedule includes the given day
func (s Schedule) On(d Date) bool {
	return s[WeekdayName(d.Weekday())]
}

// Days returns the enabled days in week order
func (s Schedule) Days() []string {
	days := make([]string, 0, len(s))
	for _, day := range Weekdays {
		if s[day] {
			days = append(days, day)
		}
	}
	return days
}

// PreviousScheduled returns the most recent scheduled day strictly before d.
// An empty schedule behaves like an every-day schedule.
func (s Schedule) PreviousScheduled(d Date) Date {
	for i := 1; i <= 7; i++ {
		prev := d.AddDays(-i)
		if s.On(prev) {
			return prev
		}
	}
	return d.AddDays(-1)
}

func (s Schedule) validate() error {
	for key := range s {
		if !isWeekday(key) {
			return fmt.Errorf("unknown day %q", key)
		}
	}
	if len(s.Days()) == 0 {
		return fmt.Errorf("at least one day must be scheduled")
	}
	return nil
}

func (s Schedule) clone() Schedule {
	c := make(Schedule, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// UnmarshalJSON accepts either {"monday": true, ...} or ["monday", ...]
func (s *Schedule) UnmarshalJSON(data []byte) error {
	var days []string
	if err := json.Unmarshal(data, &days); err == nil {
		out := make(Schedule, len(Weekdays))
		for _, day := range Weekdays {
			out[day] = false
		}
		for _, day := range days {
			out[strings.ToLower(strings.TrimSpace(day))] = true
		}
		*s = out
		return nil
	}

	var m map[string]bool
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("schedule must be a list of days or a day map: %w", err)
	}
	out := make(Schedule, len(m))
	for k, v := range m {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	*s = out
	return nil
}

func isWeekday(name string) bool {
	for _, day := range Weekdays {
		if day == name {
			return true
		}
	}
	return false
}
