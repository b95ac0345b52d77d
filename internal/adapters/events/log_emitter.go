package events

import (
	"context"
	"otcsettle/internal/domain"

	"github.com/sirupsen/logrus"
)

// LogEmitter writes events to the log. Used when no brokers are configured.
type LogEmitter struct{}

func (LogEmitter) Emit(_ context.Context, event domain.Event) {
	logrus.WithFields(logrus.Fields{
		"event":      event.Name,
		"entity_id":  event.EntityID,
		"state":      event.State,
		"attributes": event.Attributes,
	}).Info("event emitted")
}

func NewLogEmitter() LogEmitter {
	return LogEmitter{}
}
