package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that prints the event information at debug level.
type EventLogger struct {
	logger logrus.FieldLogger
}

// NewEventLogger returns a new EventLogger which writes into the logger.
func NewEventLogger(logger logrus.FieldLogger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Func writes the event information into the logger.
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"sim_time": evt.Time().String(),
		"event":    reflect.TypeOf(evt).String(),
	}

	if named, ok := evt.Handler().(Named); ok {
		fields["handler"] = named.Name()
	}

	h.logger.WithFields(fields).Debug("event")
}
