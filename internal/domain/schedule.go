package domain

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultSlotTimes is the business-hours template used when none is configured.
var DefaultSlotTimes = []string{
	"08:00", "09:00", "10:00", "11:00", "12:00", "13:00",
	"14:00", "15:00", "16:00", "17:00", "18:00", "19:00",
}

// DailySchedule is the bookable template of a provider's day, expressed as
// wall-clock times in Timezone.
type DailySchedule struct {
	Timezone string
	Times    []string
}

type ScheduledSlot struct {
	Label string
	Start time.Time
}

func (s DailySchedule) Location() (*time.Location, error) {
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, errors.New("invalid time_zone")
	}
	return loc, nil
}

// SlotsOn returns the template expanded onto the calendar day of day (as seen
// in the schedule's location), ordered by start time.
func (s DailySchedule) SlotsOn(day time.Time) ([]ScheduledSlot, error) {
	loc, err := s.Location()
	if err != nil {
		return nil, err
	}

	type clock struct {
		hour   int
		minute int
	}

	seen := make(map[int]struct{}, len(s.Times))
	clocks := make([]clock, 0, len(s.Times))
	for _, raw := range s.Times {
		hour, minute, err := ParseClock(raw)
		if err != nil {
			return nil, err
		}
		key := hour*60 + minute
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		clocks = append(clocks, clock{hour: hour, minute: minute})
	}
	if len(clocks) == 0 {
		return nil, errors.New("at least one slot time is required")
	}
	sort.Slice(clocks, func(i, j int) bool {
		return clocks[i].hour*60+clocks[i].minute < clocks[j].hour*60+clocks[j].minute
	})

	local := day.In(loc)
	out := make([]ScheduledSlot, 0, len(clocks))
	for _, c := range clocks {
		out = append(out, ScheduledSlot{
			Label: fmt.Sprintf("%02d:%02d", c.hour, c.minute),
			Start: time.Date(local.Year(), local.Month(), local.Day(), c.hour, c.minute, 0, 0, loc),
		})
	}
	return out, nil
}

// DayBounds returns [start of day, start of next day) for day in the schedule's location.
func (s DailySchedule) DayBounds(day time.Time) (time.Time, time.Time, error) {
	loc, err := s.Location()
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1), nil
}

// Validate checks the timezone and every slot time without expanding a day.
func (s DailySchedule) Validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}
	if len(s.Times) == 0 {
		return errors.New("at least one slot time is required")
	}
	for _, raw := range s.Times {
		if _, _, err := ParseClock(raw); err != nil {
			return err
		}
	}
	return nil
}

// ParseClock parses a "HH:MM" wall-clock time. Bookings are hour-granular, so
// only whole hours are accepted.
func ParseClock(raw string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid slot time %q", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid slot time %q", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid slot time %q", raw)
	}
	if minute != 0 {
		return 0, 0, fmt.Errorf("slot time %q must start on the hour", raw)
	}
	return hour, minute, nil
}
