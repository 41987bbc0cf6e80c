package appointments

import "errors"

type Kind string

const (
	KindInvalidInput          Kind = "invalid_input"
	KindNotAProvider          Kind = "not_a_provider"
	KindSelfBookingNotAllowed Kind = "self_booking_not_allowed"
	KindPastDateNotAllowed    Kind = "past_date_not_allowed"
	KindSlotUnavailable       Kind = "slot_unavailable"
	KindNotFound              Kind = "not_found"
	KindForbidden             Kind = "forbidden"
	KindTooLateToCancel       Kind = "too_late_to_cancel"
	KindAlreadyCanceled       Kind = "already_canceled"
)

// Error is a caller-facing rejection. errors.Is matches on Kind alone, so the
// package sentinels below can be compared against any Error of the same kind.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

var (
	ErrInvalidInput          = newError(KindInvalidInput, "invalid input")
	ErrNotAProvider          = newError(KindNotAProvider, "you can only create appointments with providers")
	ErrSelfBookingNotAllowed = newError(KindSelfBookingNotAllowed, "you cannot create appointments with yourself")
	ErrPastDateNotAllowed    = newError(KindPastDateNotAllowed, "past dates are not permitted")
	ErrSlotUnavailable       = newError(KindSlotUnavailable, "appointment date is not available")
	ErrNotFound              = newError(KindNotFound, "appointment not found")
	ErrForbidden             = newError(KindForbidden, "you don't have permission to cancel this appointment")
	ErrTooLateToCancel       = newError(KindTooLateToCancel, "you can only cancel appointments 2 hours in advance")
	ErrAlreadyCanceled       = newError(KindAlreadyCanceled, "appointment is already canceled")
)

func invalidInput(msg string) error {
	return newError(KindInvalidInput, msg)
}

// KindOf returns the Kind carried by err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
