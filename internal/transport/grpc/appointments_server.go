package grpc

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"gobarber/backend/internal/domain"
	"gobarber/backend/internal/service/appointments"
)

type AppointmentsServer struct {
	svc appointmentsService
	log *slog.Logger
	now func() time.Time
}

type appointmentsService interface {
	CheckAvailability(ctx context.Context, providerID, date string) ([]appointments.Slot, error)
	Create(ctx context.Context, in appointments.CreateInput) (domain.Appointment, error)
	Cancel(ctx context.Context, in appointments.CancelInput) (domain.Appointment, error)
	ListProviders(ctx context.Context) ([]domain.User, error)
	ListClientAppointments(ctx context.Context, clientID string, page int) ([]domain.Appointment, error)
}

func NewAppointmentsServer(svc appointmentsService, log *slog.Logger) *AppointmentsServer {
	if log == nil {
		log = slog.Default()
	}
	return &AppointmentsServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.appointments")),
		now: time.Now,
	}
}

func (s *AppointmentsServer) CheckAvailability(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CheckAvailability"))

	providerID := stringField(req, "provider_id")
	date := stringField(req, "date")

	slots, err := s.svc.CheckAvailability(ctx, providerID, date)
	if err != nil {
		return nil, s.toStatus(log, "availability check failed", err, slog.String("provider_id", providerID), slog.String("date", date))
	}

	out := make([]any, 0, len(slots))
	for _, slot := range slots {
		out = append(out, map[string]any{
			"time":      slot.Time,
			"value":     slot.Value.Format(time.RFC3339),
			"available": slot.Available,
		})
	}

	log.Debug("availability checked", slog.String("provider_id", providerID), slog.Int("slots", len(out)))
	return newStruct(map[string]any{"slots": out})
}

func (s *AppointmentsServer) CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CreateAppointment"))

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		log.Warn("unauthenticated request")
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	providerID := stringField(req, "provider_id")

	appt, err := s.svc.Create(ctx, appointments.CreateInput{
		ClientID:   userID,
		ProviderID: providerID,
		Date:       stringField(req, "date"),
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment create failed", err, slog.String("user_id", userID), slog.String("provider_id", providerID))
	}

	log.Info(
		"appointment created",
		slog.String("appointment_id", appt.ID.String()),
		slog.String("user_id", userID),
		slog.Time("scheduled_at", appt.ScheduledAt),
	)
	return newStruct(map[string]any{"appointment": s.appointmentMap(appt)})
}

func (s *AppointmentsServer) CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "CancelAppointment"))

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		log.Warn("unauthenticated request")
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	appointmentID := stringField(req, "appointment_id")

	appt, err := s.svc.Cancel(ctx, appointments.CancelInput{
		AppointmentID:    appointmentID,
		RequestingUserID: userID,
	})
	if err != nil {
		return nil, s.toStatus(log, "appointment cancel failed", err, slog.String("user_id", userID), slog.String("appointment_id", appointmentID))
	}

	log.Info("appointment canceled", slog.String("appointment_id", appt.ID.String()), slog.String("user_id", userID))
	return newStruct(map[string]any{"appointment": s.appointmentMap(appt)})
}

func (s *AppointmentsServer) ListProviders(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListProviders"))

	providers, err := s.svc.ListProviders(ctx)
	if err != nil {
		return nil, s.toStatus(log, "providers list failed", err)
	}

	out := make([]any, 0, len(providers))
	for _, p := range providers {
		out = append(out, userMap(p))
	}
	log.Debug("providers listed", slog.Int("count", len(out)))
	return newStruct(map[string]any{"providers": out})
}

func (s *AppointmentsServer) ListAppointments(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := s.log.With(slog.String("rpc", "ListAppointments"))

	userID, ok := UserIDFromContext(ctx)
	if !ok {
		log.Warn("unauthenticated request")
		return nil, status.Error(codes.Unauthenticated, "authentication required")
	}
	page := intField(req, "page", 1)

	appts, err := s.svc.ListClientAppointments(ctx, userID, page)
	if err != nil {
		return nil, s.toStatus(log, "appointments list failed", err, slog.String("user_id", userID))
	}

	out := make([]any, 0, len(appts))
	for _, a := range appts {
		out = append(out, s.appointmentMap(a))
	}
	log.Debug("appointments listed", slog.String("user_id", userID), slog.Int("page", page), slog.Int("count", len(out)))
	return newStruct(map[string]any{"appointments": out, "page": page})
}

// toStatus logs err at a level matching its cause and converts it to a gRPC status.
func (s *AppointmentsServer) toStatus(log *slog.Logger, msg string, err error, attrs ...any) error {
	code := codeFor(err)
	args := append([]any{slog.Any("err", err)}, attrs...)

	switch code {
	case codes.Internal:
		log.Error(msg, args...)
		return status.Error(codes.Internal, "internal error")
	case codes.InvalidArgument:
		log.Warn("invalid request", args...)
	default:
		log.Info(msg, append(args, slog.String("code", code.String()))...)
	}
	return status.Error(code, err.Error())
}

func codeFor(err error) codes.Code {
	switch appointments.KindOf(err) {
	case appointments.KindInvalidInput:
		return codes.InvalidArgument
	case appointments.KindNotAProvider,
		appointments.KindSelfBookingNotAllowed,
		appointments.KindPastDateNotAllowed,
		appointments.KindTooLateToCancel,
		appointments.KindAlreadyCanceled:
		return codes.FailedPrecondition
	case appointments.KindSlotUnavailable:
		return codes.AlreadyExists
	case appointments.KindNotFound:
		return codes.NotFound
	case appointments.KindForbidden:
		return codes.PermissionDenied
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	}
	return codes.Internal
}

func (s *AppointmentsServer) appointmentMap(a domain.Appointment) map[string]any {
	now := s.now()
	m := map[string]any{
		"id":           a.ID.String(),
		"client_id":    a.ClientID.String(),
		"provider_id":  a.ProviderID.String(),
		"scheduled_at": a.ScheduledAt.UTC().Format(time.RFC3339),
		"canceled_at":  nil,
		"past":         a.ScheduledAt.Before(now),
		"cancelable":   a.Active() && a.CancelableAt(now),
	}
	if a.CanceledAt != nil {
		m["canceled_at"] = a.CanceledAt.UTC().Format(time.RFC3339)
	}
	if a.Provider != nil {
		m["provider"] = userMap(*a.Provider)
	}
	if a.Client != nil {
		m["client"] = map[string]any{"id": a.Client.ID.String(), "name": a.Client.Name}
	}
	return m
}

func userMap(u domain.User) map[string]any {
	m := map[string]any{
		"id":    u.ID.String(),
		"name":  u.Name,
		"email": u.Email,
	}
	if u.AvatarRef != nil {
		m["avatar_ref"] = *u.AvatarRef
	}
	return m
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return out, nil
}

// stringField reads a string field; numbers are rendered as integers so that
// millisecond timestamps pass through unchanged.
func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(k.StringValue)
	case *structpb.Value_NumberValue:
		if k.NumberValue == math.Trunc(k.NumberValue) {
			return strconv.FormatInt(int64(k.NumberValue), 10)
		}
		return strconv.FormatFloat(k.NumberValue, 'f', -1, 64)
	}
	return ""
}

func intField(req *structpb.Struct, name string, def int) int {
	raw := stringField(req, name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
