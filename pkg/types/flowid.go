package types

import (
	"fmt"
	"net"
)

// FlowID is the 5-tuple used to default-fill src/dst/ports on a packet
// that didn't carry them explicitly. Ports are plain port numbers, as
// parsed from the !flowid directive.
type FlowID struct {
	Src   net.IP
	Sport uint16
	Dst   net.IP
	Dport uint16
	Proto uint8
}

// Rev returns the reverse-direction flow. The engine's flow ID fill-in
// does not call it: the PAINT annotation does not select the reverse
// direction.
func (f FlowID) Rev() FlowID {
	return FlowID{Src: f.Dst, Sport: f.Dport, Dst: f.Src, Dport: f.Sport, Proto: f.Proto}
}

func (f FlowID) String() string {
	return fmt.Sprintf("%s:%d -> %s:%d/%d", f.Src, f.Sport, f.Dst, f.Dport, f.Proto)
}

// IsZero reports whether the flow ID carries no usable information.
func (f FlowID) IsZero() bool {
	return len(f.Src) == 0 && len(f.Dst) == 0 && f.Sport == 0 && f.Dport == 0
}
