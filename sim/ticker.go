package sim

import (
	"sync"
)

// TickEvent is the event that lets a component update its state. Tick
// events are secondary, so a component ticks only after all the messages of
// the cycle have been delivered.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent.
func MakeTickEvent(handler Handler, t VTimeInCycle) TickEvent {
	evt := TickEvent{}
	evt.ID = GetIDGenerator().Generate()
	evt.handler = handler
	evt.time = t
	evt.secondary = true

	return evt
}

// A Ticker is an object that updates states with ticks. Tick returns true if
// the ticker made progress.
type Ticker interface {
	Tick() bool
}

// TickScheduler can help schedule tick events.
type TickScheduler struct {
	lock    sync.Mutex
	handler Handler
	Engine  Engine

	everScheduled bool
	nextTickTime  VTimeInCycle
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(handler Handler, engine Engine) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine

	return ticker
}

// TickNow schedules a tick at the current cycle.
func (t *TickScheduler) TickNow() {
	t.tickAt(t.CurrentTime())
}

// TickLater schedules a tick at the next cycle.
func (t *TickScheduler) TickLater() {
	t.tickAt(t.CurrentTime() + 1)
}

func (t *TickScheduler) tickAt(at VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.everScheduled && t.nextTickTime >= at {
		return
	}

	t.everScheduled = true
	t.nextTickTime = at
	t.Engine.Schedule(MakeTickEvent(t.handler, at))
}

// CurrentTime returns the current cycle of the engine.
func (t *TickScheduler) CurrentTime() VTimeInCycle {
	return t.Engine.CurrentTime()
}

// TickingComponent is a component that updates its state from cycle to
// cycle. It keeps ticking while it makes progress and sleeps otherwise; a
// message arrival wakes it up.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NewTickingComponent creates a new ticking component.
func NewTickingComponent(
	name string,
	engine Engine,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.TickScheduler = NewTickScheduler(tc, engine)
	tc.ComponentBase = NewComponentBase(name)
	tc.ticker = ticker

	return tc
}

// NotifyRecv triggers the TickingComponent to start ticking again.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickNow()
}

// Handle triggers the tick function of the TickingComponent.
func (c *TickingComponent) Handle(_ Event) error {
	madeProgress := c.ticker.Tick()
	if madeProgress {
		c.TickLater()
	}

	return nil
}
