package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/store"
)

func TestPostgresIntegration_BookingLifecycle(t *testing.T) {
	db := openTestDB(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	users := NewUserRepo(db)
	appts := NewAppointmentRepo(db)
	notifications := NewNotificationRepo(db)

	provider := domain.User{ID: uuid.New(), Name: "Provider", Email: "provider@example.com", IsProvider: true}
	client := domain.User{ID: uuid.New(), Name: "Client", Email: "client@example.com"}
	if _, err := db.NewInsert().Model(&provider).Exec(ctx); err != nil {
		t.Fatalf("insert provider: %v", err)
	}
	if _, err := db.NewInsert().Model(&client).Exec(ctx); err != nil {
		t.Fatalf("insert client: %v", err)
	}

	if _, err := users.FindProviderByID(ctx, client.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("FindProviderByID(client) err = %v, want %v", err, store.ErrNotFound)
	}
	providers, err := users.ListProviders(ctx)
	if err != nil {
		t.Fatalf("ListProviders error: %v", err)
	}
	if len(providers) != 1 || providers[0].ID != provider.ID {
		t.Fatalf("ListProviders = %+v, want only the provider", providers)
	}

	slot := time.Date(2030, 6, 10, 14, 0, 0, 0, time.UTC)

	var booked domain.Appointment
	err = appts.InProviderTransaction(ctx, provider.ID, func(ctx context.Context, tx store.CalendarTx) error {
		if _, err := tx.FindActiveAppointment(ctx, provider.ID, slot); !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("FindActiveAppointment err = %v, want %v", err, store.ErrNotFound)
		}
		a, err := tx.InsertAppointment(ctx, domain.Appointment{ClientID: client.ID, ProviderID: provider.ID, ScheduledAt: slot})
		if err != nil {
			return err
		}
		booked = a
		return nil
	})
	if err != nil {
		t.Fatalf("booking tx error: %v", err)
	}
	if booked.ID == uuid.Nil {
		t.Fatalf("expected non-nil id")
	}

	// The partial unique index rejects a second active booking even when the
	// read-side check is skipped.
	err = appts.InProviderTransaction(ctx, provider.ID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.InsertAppointment(ctx, domain.Appointment{ClientID: client.ID, ProviderID: provider.ID, ScheduledAt: slot})
		return err
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate slot err = %v, want %v", err, store.ErrConflict)
	}

	day := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	active, err := appts.ListActiveByProvider(ctx, provider.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("ListActiveByProvider error: %v", err)
	}
	if len(active) != 1 || !active[0].ScheduledAt.Equal(slot) {
		t.Fatalf("ListActiveByProvider = %+v, want the booked slot", active)
	}

	loaded, err := appts.LoadWithParties(ctx, booked.ID)
	if err != nil {
		t.Fatalf("LoadWithParties error: %v", err)
	}
	if loaded.Provider == nil || loaded.Provider.Email != provider.Email {
		t.Fatalf("provider not loaded: %+v", loaded.Provider)
	}
	if loaded.Client == nil || loaded.Client.Name != client.Name {
		t.Fatalf("client not loaded: %+v", loaded.Client)
	}

	mine, err := appts.ListActiveByClient(ctx, client.ID, 20, 0)
	if err != nil {
		t.Fatalf("ListActiveByClient error: %v", err)
	}
	if len(mine) != 1 || mine[0].Provider == nil {
		t.Fatalf("ListActiveByClient = %+v, want one row with provider", mine)
	}

	canceledAt := slot.Add(-3 * time.Hour)
	canceled, err := appts.Cancel(ctx, booked.ID, canceledAt)
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if canceled.CanceledAt == nil || !canceled.CanceledAt.Equal(canceledAt) {
		t.Fatalf("canceled_at = %v, want %v", canceled.CanceledAt, canceledAt)
	}

	if _, err := appts.Cancel(ctx, booked.ID, canceledAt.Add(time.Minute)); !errors.Is(err, store.ErrAlreadyCanceled) {
		t.Fatalf("second Cancel err = %v, want %v", err, store.ErrAlreadyCanceled)
	}
	reloaded, err := appts.LoadWithParties(ctx, booked.ID)
	if err != nil {
		t.Fatalf("LoadWithParties error: %v", err)
	}
	if reloaded.CanceledAt == nil || !reloaded.CanceledAt.Equal(canceledAt) {
		t.Fatalf("canceled_at changed to %v", reloaded.CanceledAt)
	}

	if _, err := appts.Cancel(ctx, uuid.New(), canceledAt); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Cancel(missing) err = %v, want %v", err, store.ErrNotFound)
	}

	// The slot is bookable again once the first booking is canceled.
	err = appts.InProviderTransaction(ctx, provider.ID, func(ctx context.Context, tx store.CalendarTx) error {
		_, err := tx.InsertAppointment(ctx, domain.Appointment{ClientID: client.ID, ProviderID: provider.ID, ScheduledAt: slot})
		return err
	})
	if err != nil {
		t.Fatalf("rebooking canceled slot: %v", err)
	}

	n, err := notifications.Create(ctx, domain.Notification{Content: "hello", UserID: provider.ID})
	if err != nil {
		t.Fatalf("notification Create error: %v", err)
	}
	if n.ID == uuid.Nil {
		t.Fatalf("expected notification id")
	}
}

func openTestDB(t *testing.T) *bun.DB {
	t.Helper()

	databaseURL := strings.TrimSpace(os.Getenv("GOBARBER_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("GOBARBER_TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), databaseURL, PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "gobarber_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	if _, err := db.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	// Session-level search_path; the pool holds a single connection.
	if _, err := db.NewRaw("SET search_path TO " + schema).Exec(ctx); err != nil {
		t.Fatalf("set search_path: %v", err)
	}
	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".up.sql") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQLStatements(string(b)) {
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
