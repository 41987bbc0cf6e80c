package appointments

import (
	"context"
	"time"
)

type Slot struct {
	Time      string    `json:"time"`
	Value     time.Time `json:"value"`
	Available bool      `json:"available"`
}

// CheckAvailability expands the daily schedule onto date and marks each slot
// available when it is not in the past and no active appointment holds it.
func (s *Service) CheckAvailability(ctx context.Context, providerID, date string) ([]Slot, error) {
	pid, err := parseID("provider_id", providerID)
	if err != nil {
		return nil, err
	}
	loc, err := s.schedule.Location()
	if err != nil {
		return nil, err
	}
	day, err := parseDate(date, loc)
	if err != nil {
		return nil, err
	}

	slots, err := s.schedule.SlotsOn(day)
	if err != nil {
		return nil, err
	}
	dayStart, dayEnd, err := s.schedule.DayBounds(day)
	if err != nil {
		return nil, err
	}

	booked, err := s.appointments.ListActiveByProvider(ctx, pid, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(booked))
	for _, a := range booked {
		taken[a.ScheduledAt.Unix()] = struct{}{}
	}

	now := s.now()
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		_, isTaken := taken[slot.Start.Unix()]
		out = append(out, Slot{
			Time:      slot.Label,
			Value:     slot.Start,
			Available: !slot.Start.Before(now) && !isTaken,
		})
	}
	return out, nil
}
