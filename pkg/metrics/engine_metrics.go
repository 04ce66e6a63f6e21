package metrics

import "sync/atomic"

// EngineMetrics tracks the reconstruction engine's own counters,
// separate from SinkMetrics, which counts what a downstream sink writes.
type EngineMetrics struct {
	RecordsRead      uint64
	PacketsEmitted   uint64
	PacketsSampled   uint64
	ParseErrors      uint64
	DirectiveErrors  uint64
}

func NewEngineMetrics() *EngineMetrics { return &EngineMetrics{} }

func (m *EngineMetrics) IncrementRecordsRead() {
	atomic.AddUint64(&m.RecordsRead, 1)
}

func (m *EngineMetrics) IncrementPacketsEmitted() {
	atomic.AddUint64(&m.PacketsEmitted, 1)
}

func (m *EngineMetrics) IncrementPacketsSampled() {
	atomic.AddUint64(&m.PacketsSampled, 1)
}

func (m *EngineMetrics) IncrementParseErrors() {
	atomic.AddUint64(&m.ParseErrors, 1)
}

func (m *EngineMetrics) IncrementDirectiveErrors() {
	atomic.AddUint64(&m.DirectiveErrors, 1)
}

func (m *EngineMetrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"records_read":     atomic.LoadUint64(&m.RecordsRead),
		"packets_emitted":  atomic.LoadUint64(&m.PacketsEmitted),
		"packets_sampled":  atomic.LoadUint64(&m.PacketsSampled),
		"parse_errors":     atomic.LoadUint64(&m.ParseErrors),
		"directive_errors": atomic.LoadUint64(&m.DirectiveErrors),
	}
}
