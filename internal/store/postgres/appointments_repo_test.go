package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"gobarber/backend/internal/store"
)

func TestInsertError(t *testing.T) {
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "active slot violation is a conflict",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "appointments_provider_slot_active"},
			want: store.ErrConflict,
		},
		{
			name: "wrapped active slot violation is a conflict",
			err:  fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "appointments_provider_slot_active"}),
			want: store.ErrConflict,
		},
		{
			name: "other unique violation passes through",
			err:  &pgconn.PgError{Code: "23505", ConstraintName: "appointments_pkey"},
		},
		{
			name: "check violation passes through",
			err:  &pgconn.PgError{Code: "23514", ConstraintName: "appointments_no_self_booking"},
		},
		{
			name: "non postgres error passes through",
			err:  other,
			want: other,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := insertError(tt.err)
			if tt.want != nil {
				if !errors.Is(got, tt.want) {
					t.Fatalf("insertError = %v, want %v", got, tt.want)
				}
				return
			}
			if errors.Is(got, store.ErrConflict) {
				t.Fatalf("insertError = %v, want passthrough", got)
			}
			if got != tt.err {
				t.Fatalf("insertError = %v, want %v", got, tt.err)
			}
		})
	}
}
