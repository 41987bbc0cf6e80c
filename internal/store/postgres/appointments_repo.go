package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/store"
)

const (
	uniqueViolation       = "23505"
	activeSlotConstraint  = "appointments_provider_slot_active"
	maxClientListPageSize = 100
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID uuid.UUID) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID.String()).Exec(ctx)
	return err
}

func (r *AppointmentRepo) ListActiveByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("a.provider_id = ?", providerID).
		Where("a.canceled_at IS NULL").
		Where("a.scheduled_at >= ?", windowStart.UTC()).
		Where("a.scheduled_at < ?", windowEnd.UTC()).
		OrderExpr("a.scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) ListActiveByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]domain.Appointment, error) {
	if limit <= 0 || limit > maxClientListPageSize {
		limit = maxClientListPageSize
	}
	if offset < 0 {
		offset = 0
	}

	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Provider").
		Where("a.client_id = ?", clientID).
		Where("a.canceled_at IS NULL").
		OrderExpr("a.scheduled_at ASC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) LoadWithParties(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.db.NewSelect().
		Model(&m).
		Relation("Provider").
		Relation("Client").
		Where("a.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r *AppointmentRepo) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var m domain.Appointment
		err := tx.NewSelect().
			Model(&m).
			Where("a.id = ?", id).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return err
		}
		if m.CanceledAt != nil {
			return store.ErrAlreadyCanceled
		}

		canceledAt := at.UTC()
		m.CanceledAt = &canceledAt
		_, err = tx.NewUpdate().
			Model(&m).
			Column("canceled_at", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r calendarTx) FindActiveAppointment(ctx context.Context, providerID uuid.UUID, at time.Time) (domain.Appointment, error) {
	var m domain.Appointment
	err := r.tx.NewSelect().
		Model(&m).
		Where("a.provider_id = ?", providerID).
		Where("a.scheduled_at = ?", at.UTC()).
		Where("a.canceled_at IS NULL").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Appointment{}, store.ErrNotFound
	}
	if err != nil {
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r calendarTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := domain.Appointment{
		ID:          appt.ID,
		ClientID:    appt.ClientID,
		ProviderID:  appt.ProviderID,
		ScheduledAt: appt.ScheduledAt.UTC(),
		CreatedAt:   appt.CreatedAt,
		UpdatedAt:   appt.UpdatedAt,
	}

	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Appointment{}, insertError(err)
	}
	return m, nil
}

// insertError reports a violation of the one-active-booking-per-slot index as
// store.ErrConflict and passes everything else through.
func insertError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == activeSlotConstraint {
		return store.ErrConflict
	}
	return err
}
