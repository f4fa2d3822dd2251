package sim

import "log"

type deliverEvent struct {
	*EventBase
	msg Msg
}

// DirectConnection delivers every message after a fixed number of cycles.
type DirectConnection struct {
	HookableBase

	name    string
	engine  Engine
	latency VTimeInCycle
	ports   map[RemotePort]Port
}

// DirectConnectionBuilder can build DirectConnections.
type DirectConnectionBuilder struct {
	engine  Engine
	latency VTimeInCycle
}

// MakeDirectConnectionBuilder creates a builder with a one-cycle latency.
func MakeDirectConnectionBuilder() DirectConnectionBuilder {
	return DirectConnectionBuilder{latency: 1}
}

// WithEngine sets the engine that schedules deliveries.
func (b DirectConnectionBuilder) WithEngine(
	engine Engine,
) DirectConnectionBuilder {
	b.engine = engine
	return b
}

// WithLatency sets the number of cycles between send and delivery. The
// latency must be at least one cycle.
func (b DirectConnectionBuilder) WithLatency(
	latency VTimeInCycle,
) DirectConnectionBuilder {
	b.latency = latency
	return b
}

// Build creates a DirectConnection.
func (b DirectConnectionBuilder) Build(name string) *DirectConnection {
	NameMustBeValid(name)

	if b.engine == nil {
		log.Panic("direct connection requires an engine")
	}

	if b.latency < 1 {
		log.Panicf("connection %s: latency must be at least 1 cycle", name)
	}

	return &DirectConnection{
		name:    name,
		engine:  b.engine,
		latency: b.latency,
		ports:   make(map[RemotePort]Port),
	}
}

// Name returns the name of the connection.
func (c *DirectConnection) Name() string {
	return c.name
}

// Latency returns the number of cycles a message spends in flight.
func (c *DirectConnection) Latency() VTimeInCycle {
	return c.latency
}

// PlugIn connects a port to the connection.
func (c *DirectConnection) PlugIn(port Port) {
	if _, found := c.ports[port.AsRemote()]; found {
		log.Panicf("port %s already plugged in to %s", port.Name(), c.name)
	}

	c.ports[port.AsRemote()] = port
	port.SetConnection(c)
}

// Send schedules the delivery of the message.
func (c *DirectConnection) Send(msg Msg, extraDelay VTimeInCycle) {
	if _, found := c.ports[msg.Meta().Dst]; !found {
		log.Panicf("connection %s: port %s is not plugged in",
			c.name, msg.Meta().Dst)
	}

	now := c.engine.CurrentTime()
	msg.Meta().SendTime = now

	evt := &deliverEvent{
		EventBase: NewEventBase(now+c.latency+extraDelay, c),
		msg:       msg,
	}

	c.engine.Schedule(evt)
}

// Handle delivers a message that has finished its flight.
func (c *DirectConnection) Handle(e Event) error {
	evt := e.(*deliverEvent)
	msg := evt.msg
	msg.Meta().RecvTime = evt.Time()

	c.InvokeHook(HookCtx{
		Domain: c,
		Pos:    HookPosConnDeliver,
		Item:   msg,
	})

	c.ports[msg.Meta().Dst].Deliver(msg)

	return nil
}
