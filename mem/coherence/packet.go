package coherence

import (
	"encoding"
	"encoding/binary"
	"fmt"

	"github.com/sarchlab/mesisim/sim"
)

// MaxPayload is the largest message a NetworkPacket can carry.
const MaxPayload = 32

// Encoded sizes of the wire structs.
const (
	CohMsgSize = 24
	MemMsgSize = 20
)

// MsgTypes holds the packet type values used on the network. They are
// configuration, so that two simulators sharing a network can agree on them.
type MsgTypes struct {
	Coh    uint8 `yaml:"coh"`
	Mem    uint8 `yaml:"mem"`
	Credit uint8 `yaml:"credit"`
}

// DefaultMsgTypes are the packet types used when none are configured.
var DefaultMsgTypes = MsgTypes{Coh: 1, Mem: 2, Credit: 3}

// Validate checks that the types can be told apart.
func (t MsgTypes) Validate() error {
	if t.Coh == t.Mem || t.Coh == t.Credit || t.Mem == t.Credit {
		return fmt.Errorf("packet types must be distinct, got %+v", t)
	}

	return nil
}

// Ports holds the port values that tell the units of one node apart.
type Ports struct {
	Client  uint8 `yaml:"client"`
	Manager uint8 `yaml:"manager"`
	Memory  uint8 `yaml:"memory"`
}

// DefaultPorts are the unit ports used when none are configured.
var DefaultPorts = Ports{Client: 0, Manager: 1, Memory: 2}

// NetworkPacket is the envelope that carries a message between nodes.
type NetworkPacket struct {
	sim.MsgMeta

	Type    uint8
	Src     int
	Dst     int
	Payload [MaxPayload]byte
	Size    int
}

// Meta returns the meta data of the packet.
func (p *NetworkPacket) Meta() *sim.MsgMeta {
	return &p.MsgMeta
}

// NewPacket wraps a message into a packet. A nil payload makes a packet that
// carries nothing, such as a credit.
func NewPacket(
	typ uint8,
	src, dst int,
	payload encoding.BinaryMarshaler,
) *NetworkPacket {
	p := &NetworkPacket{
		Type: typ,
		Src:  src,
		Dst:  dst,
	}
	p.ID = sim.GetIDGenerator().Generate()

	if payload != nil {
		buf, err := payload.MarshalBinary()
		if err != nil {
			panic(err)
		}

		if len(buf) > MaxPayload {
			panic(fmt.Sprintf("payload of %d bytes exceeds %d",
				len(buf), MaxPayload))
		}

		p.Size = copy(p.Payload[:], buf)
	}

	p.TrafficBytes = 8 + p.Size

	return p
}

// Decode copies the payload into a message.
func (p *NetworkPacket) Decode(into encoding.BinaryUnmarshaler) error {
	return into.UnmarshalBinary(p.Payload[:p.Size])
}

// MarshalBinary writes the message in its fixed layout.
func (m *CohMsg) MarshalBinary() ([]byte, error) {
	buf := make([]byte, CohMsgSize)
	buf[0] = byte(m.Kind)
	buf[1] = byte(m.Opcode)
	buf[2] = m.SrcPort
	buf[3] = m.DstPort
	binary.LittleEndian.PutUint64(buf[4:], m.Addr)
	binary.LittleEndian.PutUint32(buf[12:], uint32(int32(m.ForwardID)))
	binary.LittleEndian.PutUint32(buf[16:], uint32(int32(m.SrcID)))
	binary.LittleEndian.PutUint32(buf[20:], uint32(int32(m.DstID)))

	return buf, nil
}

// UnmarshalBinary reads the message from its fixed layout.
func (m *CohMsg) UnmarshalBinary(buf []byte) error {
	if len(buf) != CohMsgSize {
		return fmt.Errorf("coherence message needs %d bytes, got %d",
			CohMsgSize, len(buf))
	}

	m.Kind = MsgKind(buf[0])
	m.Opcode = Opcode(buf[1])
	m.SrcPort = buf[2]
	m.DstPort = buf[3]
	m.Addr = binary.LittleEndian.Uint64(buf[4:])
	m.ForwardID = int(int32(binary.LittleEndian.Uint32(buf[12:])))
	m.SrcID = int(int32(binary.LittleEndian.Uint32(buf[16:])))
	m.DstID = int(int32(binary.LittleEndian.Uint32(buf[20:])))

	if !m.Opcode.IsValid() {
		return fmt.Errorf("unknown opcode %d", buf[1])
	}

	return nil
}

// MarshalBinary writes the message in its fixed layout.
func (m *MemMsg) MarshalBinary() ([]byte, error) {
	buf := make([]byte, MemMsgSize)
	buf[0] = byte(m.Kind)
	buf[1] = byte(m.Op)
	buf[2] = m.SrcPort
	buf[3] = m.DstPort
	binary.LittleEndian.PutUint64(buf[4:], m.Addr)
	binary.LittleEndian.PutUint32(buf[12:], uint32(int32(m.SrcID)))
	binary.LittleEndian.PutUint32(buf[16:], uint32(int32(m.DstID)))

	return buf, nil
}

// UnmarshalBinary reads the message from its fixed layout.
func (m *MemMsg) UnmarshalBinary(buf []byte) error {
	if len(buf) != MemMsgSize {
		return fmt.Errorf("memory message needs %d bytes, got %d",
			MemMsgSize, len(buf))
	}

	m.Kind = MsgKind(buf[0])
	m.Op = MemOp(buf[1])
	m.SrcPort = buf[2]
	m.DstPort = buf[3]
	m.Addr = binary.LittleEndian.Uint64(buf[4:])
	m.SrcID = int(int32(binary.LittleEndian.Uint32(buf[12:])))
	m.DstID = int(int32(binary.LittleEndian.Uint32(buf[16:])))

	return nil
}

// DstPort returns the unit port the payload is addressed to. Both wire
// layouts keep it at the same offset.
func (p *NetworkPacket) DstPort() uint8 {
	return p.Payload[3]
}

// Open decodes the message a packet carries into a *CohMsg or a *MemMsg.
func (t MsgTypes) Open(pkt *NetworkPacket) (interface{}, error) {
	switch pkt.Type {
	case t.Coh:
		msg := new(CohMsg)
		if err := pkt.Decode(msg); err != nil {
			return nil, err
		}

		return msg, nil
	case t.Mem:
		msg := new(MemMsg)
		if err := pkt.Decode(msg); err != nil {
			return nil, err
		}

		return msg, nil
	default:
		return nil, fmt.Errorf("packet %s has unknown type %d", pkt.ID, pkt.Type)
	}
}

// Wrap puts a *CohMsg or a *MemMsg into a packet.
func (t MsgTypes) Wrap(msg interface{}) *NetworkPacket {
	switch m := msg.(type) {
	case *CohMsg:
		return NewPacket(t.Coh, m.SrcID, m.DstID, m)
	case *MemMsg:
		return NewPacket(t.Mem, m.SrcID, m.DstID, m)
	default:
		panic(fmt.Sprintf("cannot wrap %T", msg))
	}
}
