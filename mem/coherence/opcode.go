// Package coherence defines the messages exchanged by the MESI directory
// protocol and their wire encoding.
package coherence

import "fmt"

// MsgKind tells requests from replies.
type MsgKind uint8

// Message kinds.
const (
	Request MsgKind = iota
	Reply
)

func (k MsgKind) String() string {
	switch k {
	case Request:
		return "REQ"
	case Reply:
		return "RPLY"
	default:
		return fmt.Sprintf("MsgKind(%d)", uint8(k))
	}
}

// Opcode is the protocol message carried by a CohMsg.
type Opcode uint8

// Client to manager.
const (
	OpItoS Opcode = iota
	OpItoE
	OpEtoI
	OpMtoI
	OpUnblockI
	OpUnblockIDirty
	OpUnblockE
	OpUnblockS
	OpClean
	OpWriteback
)

// Manager to client.
const (
	OpGrantEData Opcode = iota + 16
	OpGrantSData
	OpGrantI
	OpFwdE
	OpFwdS
	OpDemandI
)

// Client to client.
const (
	OpCCEData Opcode = iota + 32
	OpCCMData
	OpCCSData
)

var opcodeNames = map[Opcode]string{
	OpItoS:          "I_to_S",
	OpItoE:          "I_to_E",
	OpEtoI:          "E_to_I",
	OpMtoI:          "M_to_I",
	OpUnblockI:      "UNBLOCK_I",
	OpUnblockIDirty: "UNBLOCK_I_DIRTY",
	OpUnblockE:      "UNBLOCK_E",
	OpUnblockS:      "UNBLOCK_S",
	OpClean:         "CLEAN",
	OpWriteback:     "WRITEBACK",
	OpGrantEData:    "GRANT_E_DATA",
	OpGrantSData:    "GRANT_S_DATA",
	OpGrantI:        "GRANT_I",
	OpFwdE:          "FWD_E",
	OpFwdS:          "FWD_S",
	OpDemandI:       "DEMAND_I",
	OpCCEData:       "CC_E_DATA",
	OpCCMData:       "CC_M_DATA",
	OpCCSData:       "CC_S_DATA",
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}

	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

// IsValid tells if the opcode is one of the protocol messages.
func (o Opcode) IsValid() bool {
	_, ok := opcodeNames[o]
	return ok
}

// KindOf returns whether the opcode travels as a request or a reply. Requests
// start a transaction at the receiver; replies continue one.
func KindOf(o Opcode) MsgKind {
	switch o {
	case OpItoS, OpItoE, OpEtoI, OpMtoI, OpFwdE, OpFwdS, OpDemandI:
		return Request
	default:
		return Reply
	}
}
