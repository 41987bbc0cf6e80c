package mailqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"gobarber/backend/internal/domain"
)

var cancellationTemplates = map[domain.Locale]*template.Template{
	domain.LocalePT: template.Must(template.New("cancellation_pt").Parse(`Olá, {{.Provider}}

Houve um cancelamento no seguinte horário, confira os detalhes abaixo:

Cliente: {{.Client}}
Data/hora: {{.Date}}

O horário está novamente disponível para novos agendamentos.
`)),
	domain.LocaleEN: template.Must(template.New("cancellation_en").Parse(`Hello, {{.Provider}}

An appointment was canceled, see the details below:

Client: {{.Client}}
Date/time: {{.Date}}

The slot is available for new bookings again.
`)),
}

var cancellationSubjects = map[domain.Locale]string{
	domain.LocalePT: "Agendamento cancelado",
	domain.LocaleEN: "Appointment canceled",
}

type cancellationView struct {
	Provider string
	Client   string
	Date     string
}

// RenderCancellation returns the subject and plain-text body of the mail sent
// to a provider when a client cancels.
func RenderCancellation(p CancellationPayload, locale domain.Locale, loc *time.Location) (string, string, error) {
	tpl, ok := cancellationTemplates[locale]
	if !ok {
		locale = domain.LocalePT
		tpl = cancellationTemplates[locale]
	}
	if loc == nil {
		loc = time.UTC
	}

	var buf bytes.Buffer
	err := tpl.Execute(&buf, cancellationView{
		Provider: p.Provider.Name,
		Client:   p.Client.Name,
		Date:     domain.LongDate(p.ScheduledAt.In(loc), locale),
	})
	if err != nil {
		return "", "", err
	}
	return cancellationSubjects[locale], buf.String(), nil
}

// CancellationHandler renders and sends CancellationMail jobs.
func CancellationHandler(sender Sender, locale domain.Locale, loc *time.Location) Handler {
	return func(ctx context.Context, job Job) error {
		var p CancellationPayload
		if err := json.Unmarshal(job.Payload, &p); err != nil {
			return fmt.Errorf("%w: decode payload: %v", ErrPermanent, err)
		}
		to := strings.TrimSpace(p.Provider.Email)
		if to == "" {
			return fmt.Errorf("%w: provider email missing for appointment %s", ErrPermanent, p.AppointmentID)
		}

		subject, body, err := RenderCancellation(p, locale, loc)
		if err != nil {
			return fmt.Errorf("%w: render: %v", ErrPermanent, err)
		}
		if err := sender.Send(ctx, to, subject, body); err != nil {
			return fmt.Errorf("send cancellation mail: %w", err)
		}
		return nil
	}
}
