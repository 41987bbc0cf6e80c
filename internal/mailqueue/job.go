package mailqueue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"gobarber/backend/internal/domain"
)

const KindCancellationMail = "CancellationMail"

// Job is the envelope published to the mail queue.
type Job struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func NewJob(kind string, payload any, now time.Time) (Job, error) {
	if kind == "" {
		return Job{}, fmt.Errorf("job kind is required")
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Job{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		Payload:    b,
		EnqueuedAt: now.UTC(),
	}, nil
}

type Party struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email,omitempty"`
}

// CancellationPayload carries everything the mail step needs without a
// database round trip.
type CancellationPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	CanceledAt    time.Time `json:"canceled_at"`
	Provider      Party     `json:"provider"`
	Client        Party     `json:"client"`
}

func NewCancellationPayload(a domain.Appointment) CancellationPayload {
	p := CancellationPayload{
		AppointmentID: a.ID,
		ScheduledAt:   a.ScheduledAt,
		Provider:      Party{ID: a.ProviderID},
		Client:        Party{ID: a.ClientID},
	}
	if a.CanceledAt != nil {
		p.CanceledAt = *a.CanceledAt
	}
	if a.Provider != nil {
		p.Provider.Name = a.Provider.Name
		p.Provider.Email = a.Provider.Email
	}
	if a.Client != nil {
		p.Client.Name = a.Client.Name
	}
	return p
}
