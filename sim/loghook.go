package sim

import (
	"github.com/sirupsen/logrus"
)

// A LogHook is a hook that writes simulation activity into a logger.
type LogHook interface {
	Hook
}

// LogHookBase provides the logger shared by all LogHooks.
type LogHookBase struct {
	Logger logrus.FieldLogger
}
