// Package engine reconstructs IP packets from an IP summary dump: a
// schema-driven Directive Interpreter and Record Parser feed a two-pass
// Packet Assembler, a Multi-Packet Expander splits count-annotated
// records into their clones, and an Emission Driver hands finished
// packets to a push or pull consumer, applying sampling and optional
// real-time pacing along the way.
package engine

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/haolipeng/ipsumdump/pkg/fields"
	"github.com/haolipeng/ipsumdump/pkg/metrics"
	"github.com/haolipeng/ipsumdump/pkg/source"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

// samplingScaleBits matches the original's 28-bit fixed-point sampling
// fraction; a probability of 1.0 is represented as the full scale so
// that "keep everything" never loses a packet to rounding.
const samplingScaleBits = 28
const samplingScale = uint32(1) << samplingScaleBits

// Engine is the reconstruction engine: one RecordSource, one active
// field schema, and the small set of sticky directive defaults
// (!flowid, !aggregate) that persist across records until replaced.
type Engine struct {
	cfg      Config
	registry *fields.Registry
	src      *source.RecordSource
	onError  source.ErrorHandler
	metrics  *metrics.EngineMetrics

	fieldNames       []string
	fieldReaders     []*fields.FieldReader
	fieldOrder       []int
	formatComplained bool

	minorVersion int
	sawBanner    bool

	haveFlowID    bool
	flowID        *types.FlowID
	haveAggregate bool
	aggregate     uint32

	samplingThreshold uint32
	rng               *rand.Rand

	// work is the single work-packet slot: non-nil exactly while a
	// count-annotated record's clones are still being drawn.
	work *expansion

	mu            sync.Mutex
	active        bool
	stopRequested bool
}

// NewEngine validates cfg and returns an Engine ready for Initialize.
// onError may be nil; registry supplies the field schema the Directive
// Interpreter's !data/!contents directives select from.
func NewEngine(cfg Config, registry *fields.Registry, onError source.ErrorHandler) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if onError == nil {
		onError = func(source.Severity, string, string, ...any) {}
	}
	e := &Engine{
		cfg:      cfg,
		registry: registry,
		onError:  onError,
		metrics:  metrics.NewEngineMetrics(),
		active:   cfg.Active,
		rng:      rand.New(rand.NewSource(1)),
	}
	e.samplingThreshold = uint32(cfg.SampleProb*float64(samplingScale) + 0.5)
	if cfg.DefaultFlowID != nil {
		e.flowID = cfg.DefaultFlowID
		e.haveFlowID = true
	}
	return e, nil
}

// Initialize opens the configured dump file and, if DefaultContents was
// supplied, seeds the active field schema before the first record is
// read -- matching the original's DEFAULT_CONTENTS configuration key.
func (e *Engine) Initialize() error {
	src, err := source.New(e.cfg.Filename, e.onError)
	if err != nil {
		return types.NewConfigError("FILENAME", err)
	}
	e.src = src
	if len(e.cfg.DefaultContents) > 0 {
		e.bangData(e.cfg.DefaultContents)
	}
	return nil
}

// Cleanup releases the work-packet slot and closes the source. Safe to
// call after an already-exhausted or never-initialized engine.
func (e *Engine) Cleanup() error {
	e.work = nil
	if e.src == nil {
		return nil
	}
	return e.src.Close()
}

// Metrics exposes the engine's atomic counters for a surrounding
// cmd-level status reporter.
func (e *Engine) Metrics() *metrics.EngineMetrics { return e.metrics }

// Stats is Metrics().GetStats() flattened to a single call, matching
// the shape the admin HTTP surface's EngineControl interface expects.
func (e *Engine) Stats() map[string]interface{} { return e.metrics.GetStats() }

// AtEOF reports whether the underlying source has been exhausted and
// the work-packet slot is empty -- no more packets will ever come.
func (e *Engine) AtEOF() bool {
	return e.work == nil && e.src != nil && !e.src.Initialized()
}

// Next produces the next emitted packet, applying sampling to freshly
// assembled records (clones drawn from an in-progress expansion are
// never resampled individually) and honoring the Control Surface's
// active/stop flags. ok is false once the source is exhausted, the
// engine has been stopped, or Active has been turned off. A work-packet
// slot in progress when inactive/stopped is left untouched -- its
// clones are preserved, not drained -- and resumes where it left off
// once Active is reasserted.
func (e *Engine) Next() (*types.Packet, bool) {
	if e.Stopped() || !e.Active() {
		return nil, false
	}

	if e.work != nil {
		pd, ok := e.work.next()
		if e.work.done() {
			e.work = nil
		}
		if ok {
			if pkt := e.finishPacket(pd); pkt != nil {
				return pkt, true
			}
		} else {
			e.work = nil
		}
	}

	for {
		if e.Stopped() || !e.Active() {
			return nil, false
		}
		if e.src == nil || !e.src.Initialized() {
			return nil, false
		}

		var landmark string
		var pkt *types.Packet
		if e.src.Binary() {
			payload, isText, ok := e.src.ReadBinaryFrame()
			if !ok {
				return nil, false
			}
			landmark = e.src.Landmark()
			e.metrics.IncrementRecordsRead()
			if isText {
				pkt = e.processTextRecord(string(payload), landmark)
			} else {
				pkt = e.processBinaryRecord(payload, landmark)
			}
		} else {
			line, ok := e.src.ReadLine()
			if !ok {
				return nil, false
			}
			landmark = e.src.Landmark()
			e.metrics.IncrementRecordsRead()
			pkt = e.processTextRecord(line, landmark)
		}

		if pkt != nil {
			return pkt, true
		}
	}
}

// processTextRecord dispatches one text-mode record: blank lines and
// "#" comments are ignored, "!" lines go to the Directive Interpreter,
// everything else is tokenized and assembled.
func (e *Engine) processTextRecord(line, landmark string) *types.Packet {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || trimmed[0] == '#' {
		return nil
	}
	if trimmed[0] == '!' {
		e.processDirective(trimmed, landmark)
		return nil
	}

	tokens := tokenizeASCII(line)
	args := e.buildFieldArgsASCII(tokens)
	pd, ok := e.assemblePacket(args, false, landmark)
	if !ok {
		return nil
	}
	return e.sampleAndFinish(pd)
}

// processBinaryRecord handles one non-text binary frame (a text frame
// in binary mode is routed to processTextRecord by the caller instead).
func (e *Engine) processBinaryRecord(payload []byte, landmark string) *types.Packet {
	args := e.buildFieldArgsBinary(payload)
	pd, ok := e.assemblePacket(args, true, landmark)
	if !ok {
		return nil
	}
	return e.sampleAndFinish(pd)
}

// sampleAndFinish applies the record-level sampling decision, then
// either starts multi-packet expansion or serializes pd directly.
func (e *Engine) sampleAndFinish(pd *types.PacketDescriptor) *types.Packet {
	if !e.sample() {
		e.metrics.IncrementPacketsSampled()
		return nil
	}
	if e.cfg.Multipacket && pd.Annotations.ExtraPackets > 0 {
		count := pd.Annotations.ExtraPackets + 1
		e.work = newExpansion(pd, count)
		clone, ok := e.work.next()
		if e.work.done() {
			e.work = nil
		}
		if !ok {
			return nil
		}
		return e.finishPacket(clone)
	}
	return e.finishPacket(pd)
}

// sample reports whether a freshly assembled record survives sampling.
// A threshold at or above the full scale always keeps; a zero threshold
// always drops.
func (e *Engine) sample() bool {
	if e.samplingThreshold >= samplingScale {
		return true
	}
	if e.samplingThreshold == 0 {
		return false
	}
	return uint32(e.rng.Int63n(int64(samplingScale))) < e.samplingThreshold
}

func (e *Engine) finishPacket(pd *types.PacketDescriptor) *types.Packet {
	data, err := pd.Serialize(e.cfg.Checksum)
	if err != nil {
		e.warn("", "serialize: %v", err)
		e.metrics.IncrementParseErrors()
		return nil
	}
	e.metrics.IncrementPacketsEmitted()
	return &types.Packet{Data: data, Annotations: pd.Annotations, HasIP: pd.HasIP}
}
