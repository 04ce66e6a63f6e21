package types

import "time"

// Annotations carries the out-of-band metadata the original dump format
// attaches to a packet buffer: timestamp, paint, aggregate, extra-length,
// extra-packets and the companion "first timestamp" used by multi-packet
// expansion.
type Annotations struct {
	Timestamp      time.Time
	HasFirst       bool
	FirstTimestamp time.Time
	ExtraLength    int32
	ExtraPackets   uint32 // count-1; zero means "just this one packet"
	HasAggregate   bool
	Aggregate      uint32
	Paint          uint8
	DstIP          [4]byte
	HasDstIP       bool
}

// Packet is the fully-assembled, serialized unit the engine hands to a
// downstream consumer via the push or pull contract. Data is the
// serialized IP datagram (or, if the record never reached IP status, raw
// payload bytes with no network header at all).
type Packet struct {
	Data        []byte
	Annotations Annotations
	HasIP       bool
}

// Length is the wire length of the packet as currently serialized.
func (p *Packet) Length() int {
	if p == nil {
		return 0
	}
	return len(p.Data)
}

// Clone returns a deep copy suitable for multi-packet expansion, where
// each clone must be independently mutable.
func (p *Packet) Clone() *Packet {
	if p == nil {
		return nil
	}
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return &Packet{Data: data, Annotations: p.Annotations, HasIP: p.HasIP}
}
