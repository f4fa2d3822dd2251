package tracing

import (
	"log"
	"reflect"

	"github.com/sarchlab/mesisim/sim"
)

// A Tracer receives the tasks of the domains it is attached to.
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// CollectTrace attaches a tracer to a domain, usually a cache. Attaching
// the same tracer twice would report every task twice, so it panics.
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, h := range domain.Hooks() {
		if th, ok := h.(*traceHook); ok && th.tracer == tracer {
			log.Panicf("%s already reports to a %s",
				domain.Name(), reflect.TypeOf(tracer))
		}
	}

	domain.AcceptHook(&traceHook{tracer: tracer})
}

type traceHook struct {
	tracer Tracer
}

func (h *traceHook) Func(ctx sim.HookCtx) {
	task, ok := ctx.Item.(Task)
	if !ok {
		return
	}

	switch ctx.Pos {
	case HookPosTaskStart:
		h.tracer.StartTask(task)
	case HookPosTaskStep:
		h.tracer.StepTask(task)
	case HookPosTaskEnd:
		h.tracer.EndTask(task)
	}
}
