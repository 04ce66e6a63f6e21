package types

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// PacketDescriptor is the scratch packet the assembler builds up one field
// injection at a time. It stands in for the original's raw packet buffer:
// instead of writing bytes at fixed offsets, injectors mutate typed
// gopacket layers directly, and the buffer is produced once, at the end,
// by Serialize.
//
// Invariant: either HasIP is true and IP is non-nil with a well-formed
// header, or HasIP is false and the descriptor carries no network header
// at all (Payload may still be set).
type PacketDescriptor struct {
	IP           *layers.IPv4
	Transport    gopacket.SerializableLayer // *layers.TCP, *layers.UDP, *layers.ICMPv4, or nil
	Payload      []byte
	HasIP        bool
	HasTransport bool
	Bad          bool

	DefaultProto  layers.IPProtocol
	DefaultFlowID *FlowID

	Annotations Annotations

	// MinorVersion is the active banner's minor version number (e.g. the
	// 3 in "1.3"), set by the engine before any field is injected. The
	// ip_fragoff field reader consults it: pre-1.1 dumps store the
	// fragment offset in raw bytes, later ones in 8-byte units.
	MinorVersion int

	icmpTypeInjected bool
}

// NewPacketDescriptor returns an empty descriptor ready to receive field
// injections. defaultProto seeds ip_p when no proto field is present;
// defaultFlowID (may be nil) is only stored and copied by Clone: Pass 2
// fix-up fills in flow ID defaults from the engine's own flow ID, not
// from this field.
func NewPacketDescriptor(defaultProto layers.IPProtocol, defaultFlowID *FlowID) *PacketDescriptor {
	return &PacketDescriptor{
		DefaultProto:  defaultProto,
		DefaultFlowID: defaultFlowID,
	}
}

// EnsureIP lazily promotes the descriptor to IP status, seeding version,
// a minimal 20-byte header, and the default protocol.
func (d *PacketDescriptor) EnsureIP() *layers.IPv4 {
	if d.IP == nil {
		d.IP = &layers.IPv4{
			Version:  4,
			IHL:      5,
			TTL:      64,
			Protocol: d.DefaultProto,
		}
	}
	d.HasIP = true
	return d.IP
}

// ensureTransportKind promotes the descriptor to IP status and sets its
// protocol byte to proto. It does not touch the transport layer; the
// EnsureTCP/EnsureUDP/EnsureICMP callers replace a transport layer of a
// different kind themselves.
func (d *PacketDescriptor) ensureTransportKind(proto layers.IPProtocol) {
	ip := d.EnsureIP()
	ip.Protocol = proto
}

// EnsureTCP promotes the descriptor to TCP transport status.
func (d *PacketDescriptor) EnsureTCP() *layers.TCP {
	d.ensureTransportKind(layers.IPProtocolTCP)
	tcp, ok := d.Transport.(*layers.TCP)
	if !ok {
		tcp = &layers.TCP{DataOffset: 5}
		d.Transport = tcp
	}
	d.HasTransport = true
	return tcp
}

// EnsureUDP promotes the descriptor to UDP transport status.
func (d *PacketDescriptor) EnsureUDP() *layers.UDP {
	d.ensureTransportKind(layers.IPProtocolUDP)
	udp, ok := d.Transport.(*layers.UDP)
	if !ok {
		udp = &layers.UDP{}
		d.Transport = udp
	}
	d.HasTransport = true
	return udp
}

// EnsureICMP promotes the descriptor to ICMP transport status.
func (d *PacketDescriptor) EnsureICMP() *layers.ICMPv4 {
	d.ensureTransportKind(layers.IPProtocolICMPv4)
	icmp, ok := d.Transport.(*layers.ICMPv4)
	if !ok {
		icmp = &layers.ICMPv4{}
		d.Transport = icmp
	}
	d.HasTransport = true
	return icmp
}

// SetICMPType stores the ICMP type, keeping any code already set, and
// marks the type as injected for ICMPTypeInjected. icmp_code's injector
// reads the stored type back from TypeCode, which is why icmp_type has
// the lower order key.
func (d *PacketDescriptor) SetICMPType(t uint8) {
	icmp := d.EnsureICMP()
	icmp.TypeCode = layers.CreateICMPv4TypeCode(t, icmp.TypeCode.Code())
	d.icmpTypeInjected = true
}

func (d *PacketDescriptor) ICMPTypeInjected() bool { return d.icmpTypeInjected }

// SetTimestampSec and SetTimestampNsec update one component of the
// packet's timestamp annotation while preserving the other, matching
// the original's ability to inject timestamp_sec and timestamp_usec as
// independent fields.
func (d *PacketDescriptor) SetTimestampSec(sec int64) {
	d.Annotations.Timestamp = time.Unix(sec, int64(d.Annotations.Timestamp.Nanosecond()))
}

func (d *PacketDescriptor) SetTimestampNsec(nsec int64) {
	d.Annotations.Timestamp = time.Unix(d.Annotations.Timestamp.Unix(), nsec)
}

// transportHeaderLength returns the on-wire length of the transport header
// (not including its payload), or 0 if there is none.
func (d *PacketDescriptor) transportHeaderLength() int {
	switch t := d.Transport.(type) {
	case *layers.TCP:
		off := int(t.DataOffset)
		if off < 5 {
			off = 5
		}
		return off * 4
	case *layers.UDP:
		return 8
	case *layers.ICMPv4:
		return 4 + icmpExtraLength(t.TypeCode.Type())
	default:
		return 0
	}
}

// icmpExtraLength accounts for the 4 extra bytes (id+seq, or unused word)
// most ICMP message types carry after the type/code/checksum.
func icmpExtraLength(icmpType uint8) int {
	switch icmpType {
	case layers.ICMPv4TypeEchoRequest, layers.ICMPv4TypeEchoReply,
		layers.ICMPv4TypeTimestampRequest, layers.ICMPv4TypeTimestampReply,
		layers.ICMPv4TypeInfoRequest, layers.ICMPv4TypeInfoReply:
		return 4
	case layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4TypeTimeExceeded,
		layers.ICMPv4TypeParameterProblem, layers.ICMPv4TypeSourceQuench,
		layers.ICMPv4TypeRedirect:
		return 4
	default:
		return 0
	}
}

func ipHeaderLength(ip *layers.IPv4) int {
	if ip == nil {
		return 0
	}
	n := 20
	for _, opt := range ip.Options {
		n += optionWireLength(opt.OptionType, opt.OptionLength)
	}
	return n
}

func optionWireLength(optType uint8, optLen uint8) int {
	if optType == 0 || optType == 1 {
		return 1
	}
	return int(optLen)
}

// IPHeaderLength returns the on-wire length of the IP header including
// options, or 0 if the descriptor never reached IP status.
func (d *PacketDescriptor) IPHeaderLength() int { return ipHeaderLength(d.IP) }

// NetworkLength is the byte count of the network header, transport
// header, and payload as currently assembled -- the spec's
// "network_length() + extra_length_annotation" input to ip_len fix-up.
func (d *PacketDescriptor) NetworkLength() int {
	if !d.HasIP {
		return len(d.Payload)
	}
	return ipHeaderLength(d.IP) + d.transportHeaderLength() + len(d.Payload)
}

// RecomputeHeaderSizes fixes IP.IHL and, for TCP, DataOffset, from the
// options currently attached. Called before every Serialize.
func (d *PacketDescriptor) RecomputeHeaderSizes() {
	if d.IP != nil {
		words := 5
		for _, opt := range d.IP.Options {
			words += (optionWireLength(opt.OptionType, opt.OptionLength) + 3) / 4
		}
		if words > 15 {
			words = 15
		}
		d.IP.IHL = uint8(words)
	}
	if tcp, ok := d.Transport.(*layers.TCP); ok {
		words := 5
		for _, opt := range tcp.Options {
			l := int(opt.OptionLength)
			if opt.OptionType == layers.TCPOptionKindEndList || opt.OptionType == layers.TCPOptionKindNop {
				l = 1
			}
			words += (l + 3) / 4
		}
		if words > 15 {
			words = 15
		}
		tcp.DataOffset = uint8(words)
	}
}

// Serialize produces the final wire bytes. When checksum is true the IP
// header checksum and, for non-fragments, the TCP/UDP pseudo-header
// checksum are computed by gopacket's layer serializers.
func (d *PacketDescriptor) Serialize(checksum bool) ([]byte, error) {
	d.RecomputeHeaderSizes()

	if !d.HasIP {
		return append([]byte(nil), d.Payload...), nil
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: false, ComputeChecksums: checksum}

	var serializeLayers []gopacket.SerializableLayer
	if d.HasTransport && d.Transport != nil {
		if cl, ok := d.Transport.(interface {
			SetNetworkLayerForChecksum(gopacket.NetworkLayer) error
		}); ok && !isFragment(d.IP) {
			if err := cl.SetNetworkLayerForChecksum(d.IP); err != nil {
				return nil, fmt.Errorf("set network layer for checksum: %w", err)
			}
		}
		serializeLayers = append(serializeLayers, d.IP, d.Transport)
	} else {
		serializeLayers = append(serializeLayers, d.IP)
	}
	if len(d.Payload) > 0 {
		serializeLayers = append(serializeLayers, gopacket.Payload(d.Payload))
	}

	if checksum && isFragment(d.IP) && len(serializeLayers) > 1 {
		// A fragment gets only the IP header checksum: serialize the layers
		// above IP without checksums, then prepend the IP header with one.
		if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, serializeLayers[1:]...); err != nil {
			return nil, fmt.Errorf("serialize packet: %w", err)
		}
		if err := d.IP.SerializeTo(buf, opts); err != nil {
			return nil, fmt.Errorf("serialize packet: %w", err)
		}
	} else if err := gopacket.SerializeLayers(buf, opts, serializeLayers...); err != nil {
		return nil, fmt.Errorf("serialize packet: %w", err)
	}
	out := buf.Bytes()
	return append([]byte(nil), out...), nil
}

func isFragment(ip *layers.IPv4) bool {
	if ip == nil {
		return false
	}
	return ip.FragOffset != 0 || ip.Flags&layers.IPv4MoreFragments != 0
}

// Clone deep-copies the descriptor for multi-packet expansion.
func (d *PacketDescriptor) Clone() *PacketDescriptor {
	c := &PacketDescriptor{
		Payload:          append([]byte(nil), d.Payload...),
		HasIP:            d.HasIP,
		HasTransport:     d.HasTransport,
		Bad:              d.Bad,
		DefaultProto:     d.DefaultProto,
		DefaultFlowID:    d.DefaultFlowID,
		Annotations:      d.Annotations,
		MinorVersion:     d.MinorVersion,
		icmpTypeInjected: d.icmpTypeInjected,
	}
	if d.IP != nil {
		ipCopy := *d.IP
		ipCopy.Options = append([]layers.IPv4Option(nil), d.IP.Options...)
		c.IP = &ipCopy
	}
	switch t := d.Transport.(type) {
	case *layers.TCP:
		tc := *t
		tc.Options = append([]layers.TCPOption(nil), t.Options...)
		c.Transport = &tc
	case *layers.UDP:
		uc := *t
		c.Transport = &uc
	case *layers.ICMPv4:
		ic := *t
		c.Transport = &ic
	}
	return c
}
