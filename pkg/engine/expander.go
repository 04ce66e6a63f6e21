package engine

import (
	"time"

	"github.com/google/gopacket/layers"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

// expansion is the work-packet slot's contents while a count-annotated
// record is being split into its N clones. Only one can exist at a
// time; the engine clears it once count hits zero.
type expansion struct {
	template *types.PacketDescriptor
	lengths  []int
	count    uint32
	index    uint32
	hasFirst bool
	firstTS  time.Time
	sourceTS time.Time
}

// newExpansion precomputes the per-clone length split for a record
// whose total logical length is the template's network length (headers
// plus payload) plus its extra-length annotation, divided evenly across count clones and
// clamped up so no clone claims less than the physically captured
// buffer. The residual from integer division lands on the last clone.
func newExpansion(pd *types.PacketDescriptor, count uint32) *expansion {
	bufLen := pd.NetworkLength()
	totalLen := bufLen
	if pd.HasIP {
		totalLen = bufLen + int(pd.Annotations.ExtraLength)
	}
	if totalLen < bufLen {
		totalLen = bufLen
	}

	lengths := make([]int, count)
	base := totalLen / int(count)
	if base < bufLen {
		base = bufLen
	}
	sum := 0
	for i := uint32(0); i < count-1; i++ {
		lengths[i] = base
		sum += base
	}
	last := totalLen - sum
	if last < bufLen {
		last = bufLen
	}
	lengths[count-1] = last

	return &expansion{
		template: pd,
		lengths:  lengths,
		count:    count,
		hasFirst: pd.Annotations.HasFirst,
		firstTS:  pd.Annotations.FirstTimestamp,
		sourceTS: pd.Annotations.Timestamp,
	}
}

// done reports whether every clone has been drawn.
func (x *expansion) done() bool { return x.index >= x.count }

// next produces the next clone descriptor and advances the slot's
// decrementing count. The caller is responsible for serializing it.
func (x *expansion) next() (*types.PacketDescriptor, bool) {
	if x.done() {
		return nil, false
	}
	i := x.index
	x.index++

	clone := x.template.Clone()
	setPacketLength(clone, x.lengths[i])
	clone.Annotations.Timestamp = x.timestampFor(i)
	clone.Annotations.ExtraPackets = 0
	return clone, true
}

// timestampFor interpolates linearly from firstTS to sourceTS; the
// final clone always inherits the source timestamp exactly, and with
// no first timestamp every clone does.
func (x *expansion) timestampFor(i uint32) time.Time {
	if !x.hasFirst || x.count <= 1 || i == x.count-1 {
		return x.sourceTS
	}
	step := x.sourceTS.Sub(x.firstTS) / time.Duration(x.count-1)
	return x.firstTS.Add(step * time.Duration(i))
}

// setPacketLength rewrites ip_len and, for UDP, uh_ulen coherently.
// Since the caller always passes a freshly cloned descriptor, this is
// copy-on-write by construction rather than by explicit sharing check.
func setPacketLength(pd *types.PacketDescriptor, length int) {
	if !pd.HasIP {
		return
	}
	if length < 0 {
		length = 0
	}
	if length > 0xFFFF {
		length = 0xFFFF
	}
	if int(pd.IP.Length) == length {
		return
	}
	pd.IP.Length = uint16(length)
	if udp, ok := pd.Transport.(*layers.UDP); ok {
		hl := pd.IPHeaderLength()
		if length > hl {
			udp.Length = uint16(length - hl)
		} else {
			udp.Length = 0
		}
	}
}
