package appointments

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", invalidInput("invalid provider_id"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected errors.Is to match by kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected match on a different kind")
	}
	if KindOf(err) != KindInvalidInput {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("x")) != "" {
		t.Fatalf("KindOf on a plain error must be empty")
	}
	if err.Error() != "wrapped: invalid provider_id" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)

	tests := []struct {
		raw     string
		want    time.Time
		wantErr bool
	}{
		{raw: "2024-06-10T14:00:00Z", want: time.Date(2024, 6, 10, 14, 0, 0, 0, time.UTC)},
		{raw: "2024-06-10T14:00:00-03:00", want: time.Date(2024, 6, 10, 17, 0, 0, 0, time.UTC)},
		{raw: "2024-06-10T14:00", want: time.Date(2024, 6, 10, 14, 0, 0, 0, loc)},
		{raw: "2024-06-10 14:00:30", want: time.Date(2024, 6, 10, 14, 0, 30, 0, loc)},
		{raw: "2024-06-10", want: time.Date(2024, 6, 10, 0, 0, 0, 0, loc)},
		{raw: "1718020800000", want: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
		{raw: "", wantErr: true},
		{raw: "-5", wantErr: true},
		{raw: "2024-13-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseDate(tt.raw, loc)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("err = %v, want %v", err, ErrInvalidInput)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDate error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("parseDate = %v, want %v", got, tt.want)
			}
			if got.Location() != loc {
				t.Fatalf("location = %v, want %v", got.Location(), loc)
			}
		})
	}
}
