package sim

// HookPosConnDeliver marks a connection delivering a message.
var HookPosConnDeliver = &HookPos{Name: "Conn Deliver"}

// Connection delivers messages from one port to another.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)

	// Send carries the message to its destination port. The message arrives
	// after the connection latency plus extraDelay cycles.
	Send(msg Msg, extraDelay VTimeInCycle)
}
