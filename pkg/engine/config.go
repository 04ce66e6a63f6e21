package engine

import (
	"fmt"

	"github.com/google/gopacket/layers"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

// Config is constructed directly by Go code, never parsed from a
// configuration string -- the engine's Non-goals exclude configuration
// parsing. Each field corresponds one-to-one with a key from the
// original's configuration table.
type Config struct {
	// Filename is the path to the dump source. Required.
	Filename string

	// StopAtEOF halts the surrounding driver once the source is exhausted.
	StopAtEOF bool

	// Active is the initial active state.
	Active bool

	// ZeroFill has no effect: nothing in the engine reads it. gopacket-backed
	// layers are already zero-valued on allocation; kept for
	// configuration-surface fidelity.
	ZeroFill bool

	// Timing enables real-time pacing against record timestamps.
	Timing bool

	// Checksum recomputes IP/TCP/UDP checksums on assembly.
	Checksum bool

	// SampleProb is the sampling probability in [0,1]; internally
	// quantized to a 28-bit fixed-point fraction.
	SampleProb float64

	// DefaultProto seeds ip_p when no ip_proto field is present.
	DefaultProto layers.IPProtocol

	// Multipacket enables multi-packet expansion for count-annotated
	// records.
	Multipacket bool

	// DefaultContents supplies the active field list when no !data
	// banner appears before the first record.
	DefaultContents []string

	// DefaultFlowID supplies flow ID defaults when no !flowid directive
	// appears before the first record.
	DefaultFlowID *types.FlowID
}

// Validate checks the fields Validate can check without touching the
// filesystem; Initialize performs the FILENAME open.
func (c *Config) Validate() error {
	if c.Filename == "" {
		return types.NewConfigError("FILENAME", fmt.Errorf("required"))
	}
	if c.SampleProb < 0 || c.SampleProb > 1 {
		return types.NewConfigError("SAMPLE", fmt.Errorf("must be in [0,1], got %v", c.SampleProb))
	}
	return nil
}
