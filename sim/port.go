package sim

import (
	"log"
	"sync"
)

// HookPosPortMsgSend marks when a message is sent out from the port.
var HookPosPortMsgSend = &HookPos{Name: "Port Msg Send"}

// HookPosPortMsgRecvd marks when an inbound message arrives at the port.
var HookPosPortMsgRecvd = &HookPos{Name: "Port Msg Recv"}

// HookPosPortMsgRetrieveIncoming marks when an inbound message is retrieved
// from the incoming buffer.
var HookPosPortMsgRetrieveIncoming = &HookPos{
	Name: "Port Msg Retrieve Incoming",
}

// A Port is owned by a component and is used to plug in connections.
//
// Ports do not apply back pressure. Senders are expected to run a credit
// protocol that keeps the receiving buffer from overflowing; an overflow is a
// bug and panics.
type Port interface {
	Named
	Hookable

	AsRemote() RemotePort

	SetConnection(conn Connection)
	Component() Component

	// For connection
	Deliver(msg Msg)

	// For component
	Send(msg Msg)
	SendAfter(msg Msg, delay VTimeInCycle)
	RetrieveIncoming() Msg
	PeekIncoming() Msg
	NumIncoming() int
}

type defaultPort struct {
	HookableBase

	lock sync.Mutex
	name string
	comp Component
	conn Connection

	incomingBuf Buffer
}

// NewPort creates a new port whose incoming buffer holds up to incomingCap
// messages.
func NewPort(comp Component, incomingCap int, name string) Port {
	NameMustBeValid(name)

	p := new(defaultPort)
	p.comp = comp
	p.name = name
	p.incomingBuf = NewBuffer(name+".IncomingBuf", incomingCap)

	return p
}

func (p *defaultPort) AsRemote() RemotePort {
	return RemotePort(p.name)
}

func (p *defaultPort) SetConnection(conn Connection) {
	if p.conn != nil {
		log.Panicf("port %s: connection already set to %s, now connecting to %s",
			p.name, p.conn.Name(), conn.Name())
	}

	p.conn = conn
}

func (p *defaultPort) Component() Component {
	return p.comp
}

func (p *defaultPort) Name() string {
	return p.name
}

func (p *defaultPort) Send(msg Msg) {
	p.SendAfter(msg, 0)
}

// SendAfter sends the message, adding delay cycles on top of the connection
// latency.
func (p *defaultPort) SendAfter(msg Msg, delay VTimeInCycle) {
	p.msgMustBeValid(msg)

	if p.conn == nil {
		log.Panicf("port %s is not connected", p.name)
	}

	p.InvokeHook(HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgSend,
		Item:   msg,
	})

	p.conn.Send(msg, delay)
}

func (p *defaultPort) Deliver(msg Msg) {
	p.lock.Lock()

	if !p.incomingBuf.CanPush() {
		p.lock.Unlock()
		log.Panicf("port %s incoming buffer overflow", p.name)
	}

	p.incomingBuf.Push(msg)
	p.lock.Unlock()

	p.InvokeHook(HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRecvd,
		Item:   msg,
	})

	if p.comp != nil {
		p.comp.NotifyRecv(p)
	}
}

func (p *defaultPort) RetrieveIncoming() Msg {
	p.lock.Lock()
	item := p.incomingBuf.Pop()
	p.lock.Unlock()

	if item == nil {
		return nil
	}

	msg := item.(Msg)
	p.InvokeHook(HookCtx{
		Domain: p,
		Pos:    HookPosPortMsgRetrieveIncoming,
		Item:   msg,
	})

	return msg
}

func (p *defaultPort) PeekIncoming() Msg {
	p.lock.Lock()
	defer p.lock.Unlock()

	item := p.incomingBuf.Peek()
	if item == nil {
		return nil
	}

	return item.(Msg)
}

func (p *defaultPort) NumIncoming() int {
	p.lock.Lock()
	defer p.lock.Unlock()

	return p.incomingBuf.Size()
}

func (p *defaultPort) msgMustBeValid(msg Msg) {
	portMustBeMsgSrc(p, msg)
	dstMustNotBeEmpty(msg.Meta().Dst)
	srcDstMustNotBeTheSame(msg)
}

func portMustBeMsgSrc(port Port, msg Msg) {
	if port.AsRemote() != msg.Meta().Src {
		log.Panicf("sending port %s is not msg src %s",
			port.Name(), msg.Meta().Src)
	}
}

func dstMustNotBeEmpty(port RemotePort) {
	if port == "" {
		log.Panic("dst is not given")
	}
}

func srcDstMustNotBeTheSame(msg Msg) {
	if msg.Meta().Src == msg.Meta().Dst {
		log.Panic("sending back to src")
	}
}
