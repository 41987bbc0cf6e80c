package cache

import (
	"strconv"

	"github.com/google/uuid"
)

const ProvidersKey = "providers"

// ClientAppointmentsPrefix covers every cached page of a client's appointment list.
func ClientAppointmentsPrefix(clientID uuid.UUID) string {
	return "user:" + clientID.String() + ":appointments"
}

func ClientAppointmentsKey(clientID uuid.UUID, page int) string {
	return ClientAppointmentsPrefix(clientID) + ":" + strconv.Itoa(page)
}
