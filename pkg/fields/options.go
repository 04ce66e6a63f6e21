package fields

import (
	"fmt"

	"github.com/google/gopacket/layers"
)

// DecodeIPOptions walks a raw TLV-encoded IP option blob -- exactly the
// wire format Click's ip_opt field stores -- into typed gopacket options.
// Type 0 (EOL) and type 1 (NOP) are single-byte options with no length
// byte; every other type is followed by a length byte (inclusive of the
// type+length bytes themselves, per RFC 791) and that many bytes total.
func DecodeIPOptions(raw []byte) ([]layers.IPv4Option, error) {
	var opts []layers.IPv4Option
	i := 0
	for i < len(raw) {
		t := raw[i]
		if t == 0 || t == 1 {
			opts = append(opts, layers.IPv4Option{OptionType: t, OptionLength: 1})
			i++
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("truncated ip option at byte %d", i)
		}
		l := int(raw[i+1])
		if l < 2 || i+l > len(raw) {
			return nil, fmt.Errorf("bad ip option length %d at byte %d", l, i)
		}
		opts = append(opts, layers.IPv4Option{
			OptionType:   t,
			OptionLength: uint8(l),
			OptionData:   append([]byte(nil), raw[i+2:i+l]...),
		})
		i += l
	}
	return opts, nil
}

// DecodeTCPOptions is the TCP analogue of DecodeIPOptions: kind 0
// (end-of-list) and kind 1 (NOP) are single bytes, every other kind is
// followed by a length byte inclusive of the kind+length bytes.
func DecodeTCPOptions(raw []byte) ([]layers.TCPOption, error) {
	var opts []layers.TCPOption
	i := 0
	for i < len(raw) {
		k := layers.TCPOptionKind(raw[i])
		if k == layers.TCPOptionKindEndList || k == layers.TCPOptionKindNop {
			opts = append(opts, layers.TCPOption{OptionType: k, OptionLength: 1})
			i++
			continue
		}
		if i+1 >= len(raw) {
			return nil, fmt.Errorf("truncated tcp option at byte %d", i)
		}
		l := int(raw[i+1])
		if l < 2 || i+l > len(raw) {
			return nil, fmt.Errorf("bad tcp option length %d at byte %d", l, i)
		}
		opts = append(opts, layers.TCPOption{
			OptionType:   k,
			OptionLength: uint8(l),
			OptionData:   append([]byte(nil), raw[i+2:i+l]...),
		})
		i += l
	}
	return opts, nil
}
