package fields

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

// timestampValue and fragoffValue are tiny value types passed from an
// ASCIIParse/BinaryParse call to its matching Inject. ip_fragoff's
// ASCIIParse reads pd.MinorVersion, which the engine sets on the
// descriptor before injecting any field for a record, to know whether
// the dump predates the switch from 8-byte fragment-offset units to
// raw bytes.
type timestampValue struct {
	sec, nsec int64
}

type fragoffValue struct {
	units uint16
	mf    bool
}

func parseFixedDecimalTimestamp(token string) (timestampValue, bool) {
	dot := strings.IndexByte(token, '.')
	secPart := token
	fracPart := ""
	if dot >= 0 {
		secPart = token[:dot]
		fracPart = token[dot+1:]
	}
	sec, err := strconv.ParseInt(secPart, 10, 64)
	if err != nil {
		return timestampValue{}, false
	}
	if fracPart == "" {
		return timestampValue{sec: sec}, true
	}
	// pad/truncate to 9 digits
	digits := fracPart
	for len(digits) < 9 {
		digits += "0"
	}
	digits = digits[:9]
	nsec, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return timestampValue{}, false
	}
	return timestampValue{sec: sec, nsec: nsec}, true
}

func formatFlowProtoASCII(token string) (uint8, bool) {
	switch token {
	case "T":
		return uint8(layers.IPProtocolTCP), true
	case "U":
		return uint8(layers.IPProtocolUDP), true
	case "I":
		return uint8(layers.IPProtocolICMPv4), true
	default:
		v, err := strconv.Atoi(token)
		if err != nil || v < 0 || v > 255 {
			return 0, false
		}
		return uint8(v), true
	}
}

// Default returns a Registry preloaded with the standard IP summary dump
// field set. This is the concrete stand-in for the field-schema registry
// the spec treats as an external collaborator -- the engine only ever
// calls Registry.Find.
func Default() *Registry {
	r := NewRegistry()

	// --- timestamps (order 0: must land before anything that reads them) ---

	r.Register(&FieldReader{
		Name: "timestamp", Order: 0, Wire: B8, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, ok := parseFixedDecimalTimestamp(token)
			return v, ok
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 8 {
				return nil, 0, false
			}
			sec := GetUint32BE(data[0:4])
			usec := GetUint32BE(data[4:8])
			return timestampValue{sec: int64(sec), nsec: int64(usec) * 1000}, 8, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			t := value.(timestampValue)
			pd.Annotations.Timestamp = time.Unix(t.sec, t.nsec)
		},
	})

	r.Register(&FieldReader{
		Name: "ntimestamp", Order: 0, Wire: B8, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, ok := parseFixedDecimalTimestamp(token)
			return v, ok
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 8 {
				return nil, 0, false
			}
			sec := GetUint32BE(data[0:4])
			nsec := GetUint32BE(data[4:8])
			return timestampValue{sec: int64(sec), nsec: int64(nsec)}, 8, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			t := value.(timestampValue)
			pd.Annotations.Timestamp = time.Unix(t.sec, t.nsec)
		},
	})

	r.Register(&FieldReader{
		Name: "timestamp_sec", Order: 0, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseInt(token, 10, 64)
			return v, err == nil
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return int64(GetUint32BE(data[:4])), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.SetTimestampSec(value.(int64)) },
	})

	r.Register(&FieldReader{
		Name: "timestamp_usec", Order: 0, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseInt(token, 10, 64)
			if err != nil || v >= 1000000 {
				return nil, false
			}
			return v, true
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			v := GetUint32BE(data[:4])
			if v >= 1000000 {
				return nil, 0, false
			}
			return int64(v), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.SetTimestampNsec(value.(int64) * 1000) },
	})

	r.Register(&FieldReader{
		Name: "timestamp_usec1", Order: 0, Wire: B8, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseUint(token, 10, 64)
			return v, err == nil
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 8 {
				return nil, 0, false
			}
			hi := uint64(GetUint32BE(data[0:4]))
			lo := uint64(GetUint32BE(data[4:8]))
			return (hi << 32) | lo, 8, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			uu := value.(uint64)
			pd.Annotations.Timestamp = time.Unix(int64(uu/1000000), int64(uu%1000000)*1000)
		},
	})

	for _, name := range []string{"first_timestamp", "first_ntimestamp"} {
		name := name
		binaryNanosecondScale := int64(1)
		if name == "first_timestamp" {
			binaryNanosecondScale = 1000
		}
		r.Register(&FieldReader{
			Name: name, Order: 0, Wire: B8, CanInject: true,
			ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
				return parseFixedDecimalTimestamp(token)
			},
			BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
				if len(data) < 8 {
					return nil, 0, false
				}
				sec := GetUint32BE(data[0:4])
				frac := GetUint32BE(data[4:8])
				return timestampValue{sec: int64(sec), nsec: int64(frac) * binaryNanosecondScale}, 8, true
			},
			Inject: func(pd *types.PacketDescriptor, value any) {
				t := value.(timestampValue)
				pd.Annotations.HasFirst = true
				pd.Annotations.FirstTimestamp = time.Unix(t.sec, t.nsec)
			},
		})
	}

	// --- IP address / header fields (order 1) ---

	r.Register(&FieldReader{
		Name: "ip_src", Order: 1, Wire: B4Net, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return ParseDottedQuad(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			ip := make(net.IP, 4)
			copy(ip, data[:4])
			return ip, 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().SrcIP = value.(net.IP) },
	})

	r.Register(&FieldReader{
		Name: "ip_dst", Order: 1, Wire: B4Net, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return ParseDottedQuad(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			ip := make(net.IP, 4)
			copy(ip, data[:4])
			return ip, 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().DstIP = value.(net.IP) },
	})

	r.Register(&FieldReader{
		Name: "ip_hl", Order: 1, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseByteRange(token, 5, 15) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			v := data[0]
			if v < 5 || v > 15 {
				return nil, 0, false
			}
			return v, 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().IHL = value.(uint8) },
	})

	r.Register(&FieldReader{
		Name: "ip_proto", Order: 1, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return formatFlowProtoASCII(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return data[0], 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			pd.EnsureIP().Protocol = layers.IPProtocol(value.(uint8))
		},
	})

	r.Register(&FieldReader{
		Name: "ip_tos", Order: 2, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseByteRange(token, 0, 255) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return data[0], 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().TOS = value.(uint8) },
	})

	r.Register(&FieldReader{
		Name: "ip_ttl", Order: 2, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseByteRange(token, 0, 255) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return data[0], 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().TTL = value.(uint8) },
	})

	r.Register(&FieldReader{
		Name: "ip_id", Order: 2, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint16(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 2 {
				return nil, 0, false
			}
			return GetUint16BE(data[:2]), 2, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().Id = value.(uint16) },
	})

	r.Register(&FieldReader{
		Name: "ip_len", Order: 2, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseUint(token, 10, 32)
			if err != nil || v > 0xFFFF {
				return nil, false
			}
			return uint16(v), true
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			v := GetUint32BE(data[:4])
			if v > 0xFFFF {
				v = 0xFFFF
			}
			return uint16(v), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureIP().Length = value.(uint16) },
	})

	r.Register(&FieldReader{
		Name: "ip_frag", Order: 2, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			switch token {
			case "F":
				return "F", true
			case "f":
				return "f", true
			case ".":
				return ".", true
			default:
				return nil, false
			}
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			switch data[0] {
			case 'F', 'f', '.':
				return string(data[0]), 1, true
			default:
				return nil, 0, false
			}
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			ip := pd.EnsureIP()
			switch value.(string) {
			case "F":
				ip.Flags |= layers.IPv4MoreFragments
			case "f":
				// unknown but nonzero offset; the original leaves an
				// arbitrary placeholder value here rather than failing.
				ip.FragOffset = 100
			case ".":
				ip.Flags &^= layers.IPv4MoreFragments
				ip.FragOffset = 0
			}
		},
	})

	r.Register(&FieldReader{
		Name: "ip_fragoff", Order: 2, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, pd *types.PacketDescriptor) (any, bool) {
			mf := false
			if strings.HasSuffix(token, "+") {
				mf = true
				token = token[:len(token)-1]
			}
			v, err := strconv.ParseUint(token, 10, 32)
			if err != nil {
				return nil, false
			}
			if pd.MinorVersion == 0 {
				if v%8 != 0 {
					return nil, false
				}
				v /= 8
			}
			if v >= 8192 {
				return nil, false
			}
			return fragoffValue{units: uint16(v), mf: mf}, true
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 2 {
				return nil, 0, false
			}
			v := GetUint16BE(data[:2])
			return fragoffValue{units: v & 0x1FFF, mf: v&0x8000 != 0}, 2, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			fv := value.(fragoffValue)
			ip := pd.EnsureIP()
			ip.FragOffset = fv.units
			if fv.mf {
				ip.Flags |= layers.IPv4MoreFragments
			}
		},
	})

	r.Register(&FieldReader{
		Name: "ip_opt", Order: 3, Wire: BSpecial, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return ParseOptionBytesASCII(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			return DecodeOptionBytesBinary(data)
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			raw := value.([]byte)
			opts, err := DecodeIPOptions(raw)
			if err != nil {
				return
			}
			pd.EnsureIP().Options = opts
		},
	})

	// --- transport fields (order 3) ---

	r.Register(&FieldReader{
		Name: "sport", Order: 3, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint16(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 2 {
				return nil, 0, false
			}
			return GetUint16BE(data[:2]), 2, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			port := layers.TCPPort(value.(uint16))
			switch t := pd.Transport.(type) {
			case *layers.UDP:
				t.SrcPort = layers.UDPPort(port)
			default:
				pd.EnsureTCP().SrcPort = port
			}
		},
	})

	r.Register(&FieldReader{
		Name: "dport", Order: 3, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint16(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 2 {
				return nil, 0, false
			}
			return GetUint16BE(data[:2]), 2, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			port := layers.TCPPort(value.(uint16))
			switch t := pd.Transport.(type) {
			case *layers.UDP:
				t.DstPort = layers.UDPPort(port)
			default:
				pd.EnsureTCP().DstPort = port
			}
		},
	})

	r.Register(&FieldReader{
		Name: "tcp_seq", Order: 3, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint32(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return GetUint32BE(data[:4]), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureTCP().Seq = value.(uint32) },
	})

	r.Register(&FieldReader{
		Name: "tcp_ack", Order: 3, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint32(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return GetUint32BE(data[:4]), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureTCP().Ack = value.(uint32) },
	})

	r.Register(&FieldReader{
		Name: "tcp_off", Order: 3, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseByteRange(token, 5, 15) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			v := data[0]
			if v < 5 || v > 15 {
				return nil, 0, false
			}
			return v, 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureTCP().DataOffset = value.(uint8) },
	})

	r.Register(&FieldReader{
		Name: "tcp_window", Order: 3, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint16(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 2 {
				return nil, 0, false
			}
			return GetUint16BE(data[:2]), 2, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureTCP().Window = value.(uint16) },
	})

	r.Register(&FieldReader{
		Name: "tcp_urp", Order: 3, Wire: B2, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint16(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 2 {
				return nil, 0, false
			}
			return GetUint16BE(data[:2]), 2, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.EnsureTCP().Urgent = value.(uint16) },
	})

	r.Register(&FieldReader{
		Name: "tcp_flags", Order: 3, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			if v, err := strconv.ParseUint(token, 10, 32); err == nil {
				if v > 0xFFF {
					return nil, false
				}
				return uint16(v), true
			}
			return ParseTCPFlagLetters(token)
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return uint16(data[0]), 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			tcp := pd.EnsureTCP()
			bits := value.(uint16)
			tcp.FIN = bits&(1<<0) != 0
			tcp.SYN = bits&(1<<1) != 0
			tcp.RST = bits&(1<<2) != 0
			tcp.PSH = bits&(1<<3) != 0
			tcp.ACK = bits&(1<<4) != 0
			tcp.URG = bits&(1<<5) != 0
			tcp.ECE = bits&(1<<6) != 0
			tcp.CWR = bits&(1<<7) != 0
			tcp.NS = bits&(1<<8) != 0
		},
	})

	for _, name := range []string{"tcp_opt", "tcp_ntopt", "tcp_sack"} {
		name := name
		r.Register(&FieldReader{
			Name: name, Order: 4, Wire: BSpecial, CanInject: true,
			ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return ParseOptionBytesASCII(token) },
			BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
				return DecodeOptionBytesBinary(data)
			},
			Inject: func(pd *types.PacketDescriptor, value any) {
				raw := value.([]byte)
				opts, err := DecodeTCPOptions(raw)
				if err != nil {
					return
				}
				pd.EnsureTCP().Options = opts
			},
		})
	}

	r.Register(&FieldReader{
		Name: "icmp_type", Order: 3, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseByteRange(token, 0, 255) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return data[0], 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.SetICMPType(value.(uint8)) },
	})

	r.Register(&FieldReader{
		Name: "icmp_code", Order: 4, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseByteRange(token, 0, 255) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return data[0], 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			icmp := pd.EnsureICMP()
			icmp.TypeCode = layers.CreateICMPv4TypeCode(icmp.TypeCode.Type(), value.(uint8))
		},
	})

	r.Register(&FieldReader{
		Name: "payload_len", Order: 4, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseUint(token, 10, 32)
			return uint32(v), err == nil
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return GetUint32BE(data[:4]), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			pd.Annotations.ExtraLength = int32(value.(uint32)) - int32(len(pd.Payload))
		},
	})

	r.Register(&FieldReader{
		Name: "ip_capture_len", Order: 4, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return parseUint32(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return GetUint32BE(data[:4]), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { /* recorded for input compatibility only */ },
	})

	r.Register(&FieldReader{
		Name: "payload", Order: 9, Wire: BSpecial, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) { return ParseQuotedPayload(token) },
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			return data, len(data), true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			pd.Payload = value.([]byte)
			// payload_len (order 4) ran before the payload existed, so its
			// extra length still counts these bytes; take them back out.
			if n := int32(len(pd.Payload)); pd.Annotations.ExtraLength > n {
				pd.Annotations.ExtraLength -= n
			} else {
				pd.Annotations.ExtraLength = 0
			}
		},
	})

	r.Register(&FieldReader{
		Name: "payload_md5", Order: 9, Wire: B16, CanInject: false,
	})

	r.Register(&FieldReader{
		Name: "count", Order: 5, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseUint(token, 10, 32)
			return uint32(v), err == nil
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return GetUint32BE(data[:4]), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			n := value.(uint32)
			if n > 0 {
				pd.Annotations.ExtraPackets = n - 1
			}
		},
	})

	r.Register(&FieldReader{
		Name: "aggregate", Order: 5, Wire: B4, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			v, err := strconv.ParseUint(token, 10, 32)
			return uint32(v), err == nil
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 4 {
				return nil, 0, false
			}
			return GetUint32BE(data[:4]), 4, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) {
			pd.Annotations.HasAggregate = true
			pd.Annotations.Aggregate = value.(uint32)
		},
	})

	r.Register(&FieldReader{
		Name: "link", Order: 5, Wire: B1, CanInject: true,
		ASCIIParse: func(token string, _ *types.PacketDescriptor) (any, bool) {
			switch token {
			case ">", "L":
				return uint8(0), true
			case "<", "X", "R":
				return uint8(1), true
			default:
				return parseByteRange(token, 0, 255)
			}
		},
		BinaryParse: func(data []byte, _ *types.PacketDescriptor) (any, int, bool) {
			if len(data) < 1 {
				return nil, 0, false
			}
			return data[0], 1, true
		},
		Inject: func(pd *types.PacketDescriptor, value any) { pd.Annotations.Paint = value.(uint8) },
	})

	return r
}

// parseByteRange parses a decimal token and checks it falls within
// [lo, hi], the pattern most single-byte fields use for input validation.
func parseByteRange(token string, lo, hi uint8) (uint8, bool) {
	v, err := strconv.ParseUint(token, 10, 32)
	if err != nil || v < uint64(lo) || v > uint64(hi) {
		return 0, false
	}
	return uint8(v), true
}

func parseUint16(token string) (uint16, bool) {
	v, err := strconv.ParseUint(token, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func parseUint32(token string) (uint32, bool) {
	v, err := strconv.ParseUint(token, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}
