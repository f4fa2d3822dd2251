package mesi

import (
	"github.com/sarchlab/mesisim/mem/coherence"
)

// Transport is how an automaton acts on the world.
type Transport interface {
	// Send emits exactly one protocol message.
	Send(msg *coherence.CohMsg)

	// Invalidate tells the owner of the automaton that the line is no longer
	// held, so the entry can be freed.
	Invalidate()
}

// ManagerTransport adds the directory-only side effects.
type ManagerTransport interface {
	Transport

	// ClientWriteback asks for the dirty line to be written to the next
	// level.
	ClientWriteback()

	// Ignore reports a stale message that causes no state change.
	Ignore(msg *coherence.CohMsg)
}

// Automaton is what a cache needs to know about the automaton of a line.
type Automaton interface {
	Addr() uint64
	IsStable() bool
	ReqPending() bool
	StateName() string
	Stats() Stats
}
