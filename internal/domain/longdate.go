package domain

import (
	"fmt"
	"strings"
	"time"
)

type Locale string

const (
	LocalePT Locale = "pt"
	LocaleEN Locale = "en"
)

var monthNames = map[Locale][12]string{
	LocalePT: {"janeiro", "fevereiro", "março", "abril", "maio", "junho", "julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
	LocaleEN: {"January", "February", "March", "April", "May", "June", "July", "August", "September", "October", "November", "December"},
}

// ParseLocale falls back to LocalePT for anything it does not recognise.
func ParseLocale(raw string) Locale {
	switch Locale(strings.ToLower(strings.TrimSpace(raw))) {
	case LocaleEN:
		return LocaleEN
	default:
		return LocalePT
	}
}

// LongDate renders t as "dia 10 de junho, às 14:00h" (pt) or
// "day 10 of June, at 14:00h" (en), in t's location.
func LongDate(t time.Time, locale Locale) string {
	months, ok := monthNames[locale]
	if !ok {
		locale = LocalePT
		months = monthNames[LocalePT]
	}
	month := months[t.Month()-1]
	clock := fmt.Sprintf("%d:%02dh", t.Hour(), t.Minute())

	if locale == LocaleEN {
		return fmt.Sprintf("day %02d of %s, at %s", t.Day(), month, clock)
	}
	return fmt.Sprintf("dia %02d de %s, às %s", t.Day(), month, clock)
}

// NewAppointmentMessage is the notification text sent to a provider for a new booking.
func NewAppointmentMessage(clientName string, at time.Time, locale Locale) string {
	if locale == LocaleEN {
		return fmt.Sprintf("New appointment from %s for %s.", clientName, LongDate(at, locale))
	}
	return fmt.Sprintf("Novo agendamento de %s para %s.", clientName, LongDate(at, LocalePT))
}
