package fields

import "encoding/binary"

// GetUint32BE and GetUint16BE read big-endian integers, matching the
// original's GET4/GET2 macros (the wire format is always network order
// regardless of host byte order).
func GetUint32BE(b []byte) uint32 { return binary.BigEndian.Uint32(b) }
func GetUint16BE(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// DecodeOptionBytesBinary decodes a length-prefixed raw option blob from
// a binary frame: the first byte is the blob length, followed by that
// many bytes of TLV-encoded option data. This mirrors the original's
// `endopt = data + 1 + *data` slicing for W_IP_OPT/W_TCP_OPT/W_TCP_SACK.
func DecodeOptionBytesBinary(data []byte) (value []byte, consumed int, ok bool) {
	if len(data) < 1 {
		return nil, 0, false
	}
	n := int(data[0])
	if len(data) < 1+n {
		return nil, 0, false
	}
	out := make([]byte, n)
	copy(out, data[1:1+n])
	return out, 1 + n, true
}
