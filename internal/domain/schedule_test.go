package domain

import (
	"strings"
	"testing"
	"time"
)

func TestDailySchedule_Validation(t *testing.T) {
	tests := []struct {
		name     string
		schedule DailySchedule
		wantErr  string
	}{
		{
			name:     "invalid time zone",
			schedule: DailySchedule{Timezone: "Not/AZone", Times: []string{"08:00"}},
			wantErr:  "invalid time_zone",
		},
		{
			name:     "empty template",
			schedule: DailySchedule{Timezone: "UTC"},
			wantErr:  "at least one slot time is required",
		},
		{
			name:     "hour out of range",
			schedule: DailySchedule{Times: []string{"24:00"}},
			wantErr:  "invalid slot time",
		},
		{
			name:     "missing separator",
			schedule: DailySchedule{Times: []string{"0800"}},
			wantErr:  "invalid slot time",
		},
		{
			name:     "minute out of range",
			schedule: DailySchedule{Times: []string{"08:60"}},
			wantErr:  "invalid slot time",
		},
		{
			name:     "half hour",
			schedule: DailySchedule{Times: []string{"08:00", "08:30"}},
			wantErr:  "must start on the hour",
		},
	}

	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.schedule.SlotsOn(day)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
			err = tt.schedule.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestDailySchedule_SlotsOnSortsAndDeduplicates(t *testing.T) {
	s := DailySchedule{Timezone: "UTC", Times: []string{"14:00", "08:00", "14:00", " 09:00 "}}

	slots, err := s.SlotsOn(time.Date(2024, 6, 10, 17, 45, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SlotsOn error: %v", err)
	}

	want := []string{"08:00", "09:00", "14:00"}
	if len(slots) != len(want) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(want))
	}
	for i, label := range want {
		if slots[i].Label != label {
			t.Fatalf("slots[%d].Label = %q, want %q", i, slots[i].Label, label)
		}
	}
	if !slots[2].Start.Equal(time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("slots[2].Start = %v", slots[2].Start)
	}
}

func TestDailySchedule_SlotsOnUsesScheduleLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("LoadLocation error: %v", err)
	}
	s := DailySchedule{Timezone: "America/Sao_Paulo", Times: DefaultSlotTimes}

	// 01:30 UTC on the 11th is still the 10th in Sao Paulo.
	slots, err := s.SlotsOn(time.Date(2024, 6, 11, 1, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("SlotsOn error: %v", err)
	}
	if len(slots) != len(DefaultSlotTimes) {
		t.Fatalf("len(slots) = %d, want %d", len(slots), len(DefaultSlotTimes))
	}
	first := slots[0].Start
	if !first.Equal(time.Date(2024, 6, 10, 8, 0, 0, 0, loc)) {
		t.Fatalf("first slot = %v, want 2024-06-10 08:00 local", first)
	}

	start, end, err := s.DayBounds(time.Date(2024, 6, 11, 1, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("DayBounds error: %v", err)
	}
	if !start.Equal(time.Date(2024, 6, 10, 0, 0, 0, 0, loc)) || !end.Equal(time.Date(2024, 6, 11, 0, 0, 0, 0, loc)) {
		t.Fatalf("DayBounds = [%v, %v)", start, end)
	}
}

func TestDailySchedule_ValidateDefaults(t *testing.T) {
	if err := (DailySchedule{Timezone: "America/Sao_Paulo", Times: DefaultSlotTimes}).Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}
