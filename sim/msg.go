package sim

// RemotePort is the name of a port as seen by the other side of a
// connection.
type RemotePort string

// A Msg is a piece of information that is transferred between components.
type Msg interface {
	Meta() *MsgMeta
}

// MsgMeta contains the meta data that is attached to every message.
type MsgMeta struct {
	ID           string
	Src, Dst     RemotePort
	SendTime     VTimeInCycle
	RecvTime     VTimeInCycle
	TrafficBytes int
}

// NewMsgMeta creates a MsgMeta with a fresh ID.
func NewMsgMeta(src, dst RemotePort, trafficBytes int) MsgMeta {
	return MsgMeta{
		ID:           GetIDGenerator().Generate(),
		Src:          src,
		Dst:          dst,
		TrafficBytes: trafficBytes,
	}
}
