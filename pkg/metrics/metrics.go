package metrics

import "sync/atomic"

// SinkMetrics 记录一个输出端（pcap 文件等）的写入情况。
type SinkMetrics struct {
	PacketsWritten uint64
	WriteErrors    uint64
	BytesWritten   uint64
}

func NewSinkMetrics() *SinkMetrics { return &SinkMetrics{} }

func (m *SinkMetrics) IncrementWritten() {
	atomic.AddUint64(&m.PacketsWritten, 1)
}

func (m *SinkMetrics) IncrementWriteErrors() {
	atomic.AddUint64(&m.WriteErrors, 1)
}

// AddBytesWritten 增加已写入的字节数
func (m *SinkMetrics) AddBytesWritten(bytes uint64) {
	atomic.AddUint64(&m.BytesWritten, bytes)
}

func (m *SinkMetrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"packets_written": atomic.LoadUint64(&m.PacketsWritten),
		"write_errors":    atomic.LoadUint64(&m.WriteErrors),
		"bytes_written":   atomic.LoadUint64(&m.BytesWritten),
	}
}
