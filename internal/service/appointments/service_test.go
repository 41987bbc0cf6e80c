package appointments

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/store"
)

var (
	providerID = uuid.MustParse("0190a6e4-0000-7000-8000-0000000000a1")
	clientID   = uuid.MustParse("0190a6e4-0000-7000-8000-0000000000c1")
	otherID    = uuid.MustParse("0190a6e4-0000-7000-8000-0000000000d1")
)

type fakeUsers struct {
	findProviderByID func(ctx context.Context, id uuid.UUID) (domain.User, error)
	findByID         func(ctx context.Context, id uuid.UUID) (domain.User, error)
	listProviders    func(ctx context.Context) ([]domain.User, error)
}

func (f *fakeUsers) FindProviderByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	if f.findProviderByID == nil {
		panic("FindProviderByID not configured")
	}
	return f.findProviderByID(ctx, id)
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	if f.findByID == nil {
		panic("FindByID not configured")
	}
	return f.findByID(ctx, id)
}

func (f *fakeUsers) ListProviders(ctx context.Context) ([]domain.User, error) {
	if f.listProviders == nil {
		panic("ListProviders not configured")
	}
	return f.listProviders(ctx)
}

type fakeAppointments struct {
	findActive           func(ctx context.Context, providerID uuid.UUID, at time.Time) (domain.Appointment, error)
	insert               func(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	listActiveByProvider func(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error)
	listActiveByClient   func(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]domain.Appointment, error)
	loadWithParties      func(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	cancel               func(ctx context.Context, id uuid.UUID, at time.Time) (domain.Appointment, error)
}

func (f *fakeAppointments) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return fn(ctx, fakeCalendarTx{f: f})
}

func (f *fakeAppointments) ListActiveByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	if f.listActiveByProvider == nil {
		panic("ListActiveByProvider not configured")
	}
	return f.listActiveByProvider(ctx, providerID, windowStart, windowEnd)
}

func (f *fakeAppointments) ListActiveByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]domain.Appointment, error) {
	if f.listActiveByClient == nil {
		panic("ListActiveByClient not configured")
	}
	return f.listActiveByClient(ctx, clientID, limit, offset)
}

func (f *fakeAppointments) LoadWithParties(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	if f.loadWithParties == nil {
		panic("LoadWithParties not configured")
	}
	return f.loadWithParties(ctx, id)
}

func (f *fakeAppointments) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (domain.Appointment, error) {
	if f.cancel == nil {
		panic("Cancel not configured")
	}
	return f.cancel(ctx, id, at)
}

type fakeCalendarTx struct {
	f *fakeAppointments
}

func (t fakeCalendarTx) FindActiveAppointment(ctx context.Context, providerID uuid.UUID, at time.Time) (domain.Appointment, error) {
	if t.f.findActive == nil {
		panic("FindActiveAppointment not configured")
	}
	return t.f.findActive(ctx, providerID, at)
}

func (t fakeCalendarTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	if t.f.insert == nil {
		panic("InsertAppointment not configured")
	}
	return t.f.insert(ctx, appt)
}

type fakeNotifications struct {
	create func(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

func (f *fakeNotifications) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	if f.create == nil {
		panic("Create not configured")
	}
	return f.create(ctx, n)
}

type recordingCache struct {
	mu            sync.Mutex
	data          map[string]any
	gets          []string
	invalidated   []string
	getErr        error
	setErr        error
	invalidateErr error
}

func (c *recordingCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets = append(c.gets, key)
	if c.getErr != nil {
		return false, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return false, nil
	}
	switch d := dest.(type) {
	case *[]domain.User:
		*d = v.([]domain.User)
	case *[]domain.Appointment:
		*d = v.([]domain.Appointment)
	default:
		panic("unexpected cache destination")
	}
	return true, nil
}

func (c *recordingCache) Set(ctx context.Context, key string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.data == nil {
		c.data = make(map[string]any)
	}
	c.data[key] = value
	return nil
}

func (c *recordingCache) InvalidatePrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, prefix)
	return c.invalidateErr
}

type enqueued struct {
	kind    string
	payload any
}

type recordingMail struct {
	mu   sync.Mutex
	jobs []enqueued
	err  error
}

func (m *recordingMail) Enqueue(ctx context.Context, kind string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, enqueued{kind: kind, payload: payload})
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// memStore is an in-memory implementation of the three repositories. Its
// provider transactions hold a single mutex, like the advisory lock.
type memStore struct {
	mu            sync.Mutex
	users         map[uuid.UUID]domain.User
	appts         []domain.Appointment
	notifications []domain.Notification
}

func newMemStore(users ...domain.User) *memStore {
	m := &memStore{users: make(map[uuid.UUID]domain.User, len(users))}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memStore) FindProviderByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.IsProvider {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) FindByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memStore) ListProviders(ctx context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.IsProvider {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) InProviderTransaction(ctx context.Context, providerID uuid.UUID, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, memTx{m: m})
}

func (m *memStore) ListActiveByProvider(ctx context.Context, providerID uuid.UUID, windowStart, windowEnd time.Time) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Appointment
	for _, a := range m.appts {
		if a.ProviderID == providerID && a.Active() && !a.ScheduledAt.Before(windowStart) && a.ScheduledAt.Before(windowEnd) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ListActiveByClient(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Appointment
	for _, a := range m.appts {
		if a.ClientID == clientID && a.Active() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) LoadWithParties(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.ID == id {
			p := m.users[a.ProviderID]
			c := m.users[a.ClientID]
			a.Provider = &p
			a.Client = &c
			return a, nil
		}
	}
	return domain.Appointment{}, store.ErrNotFound
}

func (m *memStore) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (domain.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.appts {
		if m.appts[i].ID != id {
			continue
		}
		if m.appts[i].CanceledAt != nil {
			return domain.Appointment{}, store.ErrAlreadyCanceled
		}
		canceledAt := at.UTC()
		m.appts[i].CanceledAt = &canceledAt
		return m.appts[i], nil
	}
	return domain.Appointment{}, store.ErrNotFound
}

func (m *memStore) Create(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	m.notifications = append(m.notifications, n)
	return n, nil
}

type memTx struct {
	m *memStore
}

func (t memTx) FindActiveAppointment(ctx context.Context, providerID uuid.UUID, at time.Time) (domain.Appointment, error) {
	for _, a := range t.m.appts {
		if a.ProviderID == providerID && a.Active() && a.ScheduledAt.Equal(at) {
			return a, nil
		}
	}
	return domain.Appointment{}, store.ErrNotFound
}

func (t memTx) InsertAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	appt.ID = uuid.New()
	t.m.appts = append(t.m.appts, appt)
	return appt, nil
}

func newMemService(m *memStore, c *recordingCache, mail *recordingMail, now func() time.Time) *Service {
	return NewService(Deps{
		Users:         m,
		Appointments:  m,
		Notifications: m,
		Cache:         c,
		Mail:          mail,
	}, Options{
		Logger: discardLogger(),
		Now:    now,
	})
}
