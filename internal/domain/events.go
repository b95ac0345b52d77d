package domain

import "time"

type EventName string

const (
	EventPendingCryptoOrder       EventName = "pendingCryptoOrder"
	EventConfirmedCryptoOrder     EventName = "confirmedCryptoOrder"
	EventPendingCryptoRemittance  EventName = "pendingCryptoRemittance"
	EventWaitingCryptoRemittance  EventName = "waitingCryptoRemittance"
	EventCanceledCryptoRemittance EventName = "canceledCryptoRemittance"
	EventFilledCryptoRemittance   EventName = "filledCryptoRemittance"
	EventCreatedRemittance        EventName = "createdRemittance"
	EventClosedRemittance         EventName = "closedRemittance"
	EventWaitingRemittance        EventName = "waitingRemittance"
	EventReadyExchangeQuotation   EventName = "readyExchangeQuotation"
)

// Event carries identifying fields only; consumers load full records themselves.
type Event struct {
	Name       EventName         `json:"name"`
	EntityID   string            `json:"entity_id"`
	State      string            `json:"state,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// CryptoRemittanceEvent maps a placement status to its lifecycle event.
func CryptoRemittanceEvent(status CryptoRemittanceStatus) (EventName, bool) {
	switch status {
	case CryptoRemittancePending:
		return EventPendingCryptoRemittance, true
	case CryptoRemittanceWaiting:
		return EventWaitingCryptoRemittance, true
	case CryptoRemittanceFilled:
		return EventFilledCryptoRemittance, true
	case CryptoRemittanceCanceled:
		return EventCanceledCryptoRemittance, true
	}
	return "", false
}
