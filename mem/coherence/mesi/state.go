// Package mesi implements the per-line automata of a MESI directory
// protocol. A Client runs next to a private cache and a Manager runs next to
// the directory. Both talk to the outside world only through an injected
// transport, so they can be driven without a cache around them.
package mesi

import "fmt"

// ClientState is the state of a line at a client.
type ClientState uint8

// Client states. IE, SE, EI and MI are transient.
const (
	ClientI ClientState = iota
	ClientS
	ClientE
	ClientM
	ClientIE
	ClientSE
	ClientEI
	ClientMI
)

var clientStateNames = [...]string{"I", "S", "E", "M", "IE", "SE", "EI", "MI"}

func (s ClientState) String() string {
	if int(s) < len(clientStateNames) {
		return clientStateNames[s]
	}

	return fmt.Sprintf("ClientState(%d)", uint8(s))
}

// IsStable tells if no transaction is in progress in the state.
func (s ClientState) IsStable() bool {
	return s <= ClientM
}

// ManagerState is the state of a line at the directory.
type ManagerState uint8

// Manager states. All but I, E and S are transient.
const (
	ManagerI ManagerState = iota
	ManagerE
	ManagerS
	ManagerIE
	ManagerEE
	ManagerES
	ManagerSS
	ManagerSIE
	ManagerEIPut
	ManagerEIEvict
	ManagerSIEvict
)

var managerStateNames = [...]string{
	"I", "E", "S", "IE", "EE", "ES", "SS", "SIE",
	"EI_PUT", "EI_EVICT", "SI_EVICT",
}

func (s ManagerState) String() string {
	if int(s) < len(managerStateNames) {
		return managerStateNames[s]
	}

	return fmt.Sprintf("ManagerState(%d)", uint8(s))
}

// IsStable tells if no transaction is in progress in the state.
func (s ManagerState) IsStable() bool {
	return s <= ManagerS
}
