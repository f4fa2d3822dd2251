package sim

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// EventLogger is a hook that logs every event before it is handled.
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger that writes at trace level.
func NewEventLogger(logger logrus.FieldLogger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
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

	entry := h.Logger.WithFields(logrus.Fields{
		"cycle": evt.Time(),
		"event": reflect.TypeOf(evt).String(),
	})

	if comp, ok := evt.Handler().(Named); ok {
		entry = entry.WithField("handler", comp.Name())
	}

	entry.Trace("event")
}
