// Package fields implements the field-schema registry the engine's
// Directive Interpreter and Record Parser are written against. The
// engine depends only on the Registry contract (Find by name); the
// default field set registered by Default is the concrete "external
// collaborator" the original spec treats as out of scope.
package fields

import "github.com/haolipeng/ipsumdump/pkg/types"

// WireClass is the binary wire-width class a field descriptor declares,
// matching the original's B_0/B_1/.../B_SPECIAL enumeration.
type WireClass int

const (
	B0 WireClass = iota
	B1
	B2
	B4
	B4Net // 4 bytes, big-endian network order (IP addresses)
	B6Ptr
	B8
	B16
	BSpecial // variable width; the field's own BinaryParse determines length
)

// FixedWidth returns the byte count for fixed wire classes, or -1 for
// BSpecial (the caller must delegate to BinaryParse to find the width).
func (w WireClass) FixedWidth() int {
	switch w {
	case B0:
		return 0
	case B1:
		return 1
	case B2:
		return 2
	case B4, B4Net:
		return 4
	case B6Ptr:
		return 6
	case B8:
		return 8
	case B16:
		return 16
	default:
		return -1
	}
}

// FieldReader is one registry entry: a stable name, an order key
// controlling Pass 1 injection order, ASCII/binary parsers, and an
// injector that mutates a PacketDescriptor. CanInject mirrors fields
// that exist for documentation/output purposes only and are ignored on
// input (the original's "content type ignored on input" warning).
type FieldReader struct {
	Name string
	Order int
	Wire  WireClass

	// ASCIIParse converts one whitespace-delimited (possibly quoted)
	// token into a value. pd is the packet descriptor assembled so far
	// this record, read-only context for dependent fields (e.g.
	// ip_fragoff consulting pd.MinorVersion).
	ASCIIParse func(token string, pd *types.PacketDescriptor) (value any, ok bool)

	// BinaryParse consumes from data (which begins at this field's
	// slice, and for BSpecial runs to the end of the frame) and
	// returns the value, the number of bytes consumed, and success.
	BinaryParse func(data []byte, pd *types.PacketDescriptor) (value any, consumed int, ok bool)

	// Inject moves a successfully parsed value into the packet
	// descriptor. Only called when ASCIIParse/BinaryParse succeeded.
	Inject func(pd *types.PacketDescriptor, value any)

	CanInject bool
}

// Registry maps field name to descriptor. The engine never special-cases
// a field name outside of what a Registry returns.
type Registry struct {
	byName map[string]*FieldReader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*FieldReader)}
}

// Register adds or replaces a field descriptor.
func (r *Registry) Register(f *FieldReader) {
	r.byName[f.Name] = f
}

// Find looks up a field by name.
func (r *Registry) Find(name string) (*FieldReader, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// NullReader is substituted for an unknown field name so that the column still occupies a slot in the active field list, but
// never parses or injects anything -- matching the original's
// IPSummaryDump::null_reader.
var NullReader = &FieldReader{
	Name:      "<null>",
	Order:     100,
	Wire:      BSpecial,
	CanInject: false,
}
