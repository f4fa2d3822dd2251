package mesi

import "fmt"

// ProtocolViolation is raised, through panic, when an automaton receives an
// input that its current state does not accept. It means the protocol or its
// caller is broken, so the simulation cannot continue.
type ProtocolViolation struct {
	Role  string
	ID    int
	State string
	Event string
	Addr  uint64
	Src   int
}

func (v *ProtocolViolation) Error() string {
	if v.Src >= 0 {
		return fmt.Sprintf("%s %d: unexpected %s from %d in state %s, "+
			"addr 0x%x", v.Role, v.ID, v.Event, v.Src, v.State, v.Addr)
	}

	return fmt.Sprintf("%s %d: unexpected %s in state %s, addr 0x%x",
		v.Role, v.ID, v.Event, v.State, v.Addr)
}
