package engine

import (
	"net"

	"github.com/google/gopacket/layers"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

// fieldArg is one column's raw, unparsed argument, aligned with the
// declared field list (e.fieldNames / e.fieldReaders), not the
// order-key permutation.
type fieldArg struct {
	token  string
	data   []byte
	absent bool
}

func (e *Engine) buildFieldArgsASCII(tokens []string) []fieldArg {
	args := make([]fieldArg, len(e.fieldNames))
	for i := range args {
		if i < len(tokens) {
			args[i].token = tokens[i]
			args[i].absent = tokens[i] == "-"
		} else {
			args[i].absent = true
		}
	}
	return args
}

func (e *Engine) buildFieldArgsBinary(payload []byte) []fieldArg {
	slices := sliceBinary(payload, e.fieldReaders)
	args := make([]fieldArg, len(e.fieldNames))
	for i := range args {
		if slices[i] == nil {
			args[i].absent = true
		} else {
			args[i].data = slices[i]
		}
	}
	return args
}

func isBlankFieldArgs(args []fieldArg) bool {
	for _, a := range args {
		if !a.absent {
			return false
		}
	}
	return true
}

// assemblePacket runs the two-pass assembly: Pass 1 injects every
// present, injectable field in order-key order; Pass 2 fixes up
// lengths, flow ID, and the destination-IP annotation. ok is false
// when nothing injected (the record is discarded).
func (e *Engine) assemblePacket(args []fieldArg, binary bool, landmark string) (*types.PacketDescriptor, bool) {
	pd := types.NewPacketDescriptor(e.cfg.DefaultProto, nil)
	pd.MinorVersion = e.minorVersion

	// one-time warning for a data record with no banner before it;
	// sawBanner doubles as the latch once the warning has fired
	if !e.sawBanner && len(e.cfg.DefaultContents) == 0 {
		e.sawBanner = true
		e.warn(landmark, "missing !IPSummaryDump banner")
	}

	injected := 0
	for _, idx := range e.fieldOrder {
		fr := e.fieldReaders[idx]
		if fr == nil || !fr.CanInject {
			continue
		}
		arg := args[idx]
		if arg.absent {
			continue
		}

		var value any
		var ok bool
		if binary {
			if fr.BinaryParse == nil {
				continue
			}
			value, _, ok = fr.BinaryParse(arg.data, pd)
		} else {
			if fr.ASCIIParse == nil {
				continue
			}
			value, ok = fr.ASCIIParse(arg.token, pd)
		}
		if !ok {
			// field parse error: treated as absent, no diagnostic
			continue
		}
		fr.Inject(pd, value)
		injected++
	}

	if injected == 0 {
		if !isBlankFieldArgs(args) {
			e.reportRecordParseError(landmark)
		}
		return nil, false
	}

	e.fixup(pd)
	return pd, true
}

func (e *Engine) reportRecordParseError(landmark string) {
	if e.formatComplained {
		return
	}
	e.formatComplained = true
	reason := "no field in this record was successfully parsed"
	if len(e.fieldNames) == 0 {
		reason = "no !data directive has declared a field list"
	}
	e.warn(landmark, "%v", types.NewRecordParseError(landmark, reason))
	if e.metrics != nil {
		e.metrics.IncrementParseErrors()
	}
}

// fixup is Pass 2: default flow ID fill-in, ip_len/uh_ulen derivation,
// the extra-length and destination-IP annotations. Checksum
// computation is delegated to PacketDescriptor.Serialize, which asks
// gopacket to compute it at the point the packet is actually turned
// into bytes.
func (e *Engine) fixup(pd *types.PacketDescriptor) {
	if !pd.HasIP {
		return
	}
	ip := pd.IP

	if e.haveFlowID && e.flowID != nil {
		applyFlowIDDefaults(pd, e.flowID)
	}
	if !pd.Annotations.HasAggregate && e.haveAggregate {
		pd.Annotations.Aggregate = e.aggregate
		pd.Annotations.HasAggregate = true
	}

	bufLen := pd.NetworkLength()

	if ip.Length == 0 {
		total := bufLen + int(pd.Annotations.ExtraLength)
		if total < 0 {
			total = 0
		}
		if total > 0xFFFF {
			total = 0xFFFF
		}
		ip.Length = uint16(total)
	}

	if udp, ok := pd.Transport.(*layers.UDP); ok {
		firstFragment := ip.FragOffset == 0 && ip.Flags&layers.IPv4MoreFragments == 0
		if firstFragment && udp.Length == 0 {
			hl := pd.IPHeaderLength()
			if int(ip.Length) > hl {
				udp.Length = ip.Length - uint16(hl)
			}
		}
	}

	extra := int32(ip.Length) - int32(bufLen)
	if extra < 0 {
		extra = 0
	}
	pd.Annotations.ExtraLength = extra

	if len(ip.DstIP) == 4 {
		copy(pd.Annotations.DstIP[:], ip.DstIP)
		pd.Annotations.HasDstIP = true
	}
}

// applyFlowIDDefaults fills in any IP src/dst and ports left unset,
// promoting the descriptor's transport layer from the protocol byte
// when the flow ID carries port information but no transport header
// has been injected yet.
func applyFlowIDDefaults(pd *types.PacketDescriptor, fid *types.FlowID) {
	ip := pd.IP
	if isZeroIP(ip.SrcIP) && !isZeroIP(fid.Src) {
		ip.SrcIP = fid.Src
	}
	if isZeroIP(ip.DstIP) && !isZeroIP(fid.Dst) {
		ip.DstIP = fid.Dst
	}
	if ip.Protocol == 0 && fid.Proto != 0 {
		ip.Protocol = layers.IPProtocol(fid.Proto)
	}

	switch ip.Protocol {
	case layers.IPProtocolTCP:
		tcp := pd.EnsureTCP()
		if tcp.SrcPort == 0 && fid.Sport != 0 {
			tcp.SrcPort = layers.TCPPort(fid.Sport)
		}
		if tcp.DstPort == 0 && fid.Dport != 0 {
			tcp.DstPort = layers.TCPPort(fid.Dport)
		}
	case layers.IPProtocolUDP:
		udp := pd.EnsureUDP()
		if udp.SrcPort == 0 && fid.Sport != 0 {
			udp.SrcPort = layers.UDPPort(fid.Sport)
		}
		if udp.DstPort == 0 && fid.Dport != 0 {
			udp.DstPort = layers.UDPPort(fid.Dport)
		}
	}
}

func isZeroIP(ip net.IP) bool {
	if len(ip) == 0 {
		return true
	}
	for _, b := range ip {
		if b != 0 {
			return false
		}
	}
	return true
}
