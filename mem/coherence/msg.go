package coherence

import (
	"fmt"

	"github.com/sarchlab/mesisim/sim"
)

// NoForward marks a CohMsg that does not name a forward target.
const NoForward = -1

// CohMsg is a protocol message between a client and a manager, or between
// two clients.
type CohMsg struct {
	Kind      MsgKind
	Opcode    Opcode
	Addr      uint64
	ForwardID int
	SrcID     int
	SrcPort   uint8
	DstID     int
	DstPort   uint8
}

func (m *CohMsg) String() string {
	return fmt.Sprintf("%s %s 0x%x %d:%d->%d:%d fwd %d",
		m.Kind, m.Opcode, m.Addr,
		m.SrcID, m.SrcPort, m.DstID, m.DstPort, m.ForwardID)
}

// MemOp is the operation of a MemMsg.
type MemOp uint8

// Memory operations.
const (
	MemLoad MemOp = iota
	MemStore
)

func (o MemOp) String() string {
	if o == MemStore {
		return "store"
	}

	return "load"
}

// MemMsg is a message between a manager and the memory controller.
type MemMsg struct {
	Kind    MsgKind
	Op      MemOp
	Addr    uint64
	SrcID   int
	SrcPort uint8
	DstID   int
	DstPort uint8
}

func (m *MemMsg) String() string {
	return fmt.Sprintf("%s mem-%s 0x%x %d:%d->%d:%d",
		m.Kind, m.Op, m.Addr, m.SrcID, m.SrcPort, m.DstID, m.DstPort)
}

// AccessOp is the operation a processor asks the cache for.
type AccessOp uint8

// Processor operations.
const (
	Load AccessOp = iota
	Store
)

func (o AccessOp) String() string {
	if o == Store {
		return "store"
	}

	return "load"
}

// CacheReq is a processor access to the first level cache.
type CacheReq struct {
	sim.MsgMeta

	Addr uint64
	Op   AccessOp
}

// Meta returns the meta data of the message.
func (r *CacheReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// CacheReqBuilder can build CacheReqs.
type CacheReqBuilder struct {
	src, dst sim.RemotePort
	addr     uint64
	op       AccessOp
}

// WithSrc sets the source of the request.
func (b CacheReqBuilder) WithSrc(src sim.RemotePort) CacheReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request.
func (b CacheReqBuilder) WithDst(dst sim.RemotePort) CacheReqBuilder {
	b.dst = dst
	return b
}

// WithAddress sets the address to access.
func (b CacheReqBuilder) WithAddress(addr uint64) CacheReqBuilder {
	b.addr = addr
	return b
}

// WithOp sets the operation.
func (b CacheReqBuilder) WithOp(op AccessOp) CacheReqBuilder {
	b.op = op
	return b
}

// Build creates a new CacheReq.
func (b CacheReqBuilder) Build() *CacheReq {
	return &CacheReq{
		MsgMeta: sim.NewMsgMeta(b.src, b.dst, 12),
		Addr:    b.addr,
		Op:      b.op,
	}
}

// CacheRsp tells the processor that an access has completed.
type CacheRsp struct {
	sim.MsgMeta

	RespondTo string
	Addr      uint64
	Op        AccessOp
	Hit       bool
}

// Meta returns the meta data of the message.
func (r *CacheRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// NewCacheRsp creates the response to a request.
func NewCacheRsp(req *CacheReq, hit bool) *CacheRsp {
	return &CacheRsp{
		MsgMeta:   sim.NewMsgMeta(req.Dst, req.Src, 4),
		RespondTo: req.ID,
		Addr:      req.Addr,
		Op:        req.Op,
		Hit:       hit,
	}
}
