package sink

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haolipeng/ipsumdump/pkg/types"
)

func TestPcapSinkWritesReadablePcapFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "capture")
	s, err := NewPcapSink(base, 0)
	require.NoError(t, err)

	pkt := &types.Packet{
		Data:        []byte{0x45, 0x00, 0x00, 0x14, 0, 0, 0, 0, 64, 6, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8},
		Annotations: types.Annotations{Timestamp: time.Unix(100, 0)},
		HasIP:       true,
	}
	require.NoError(t, s.Write(pkt))
	require.NoError(t, s.Write(pkt))

	stats := s.Metrics().GetStats()
	assert.EqualValues(t, 2, stats["packets_written"])
	assert.EqualValues(t, 0, stats["write_errors"])
	assert.EqualValues(t, 2*len(pkt.Data), stats["bytes_written"])

	curFile := s.curFileName
	require.NoError(t, s.Close())

	f, err := os.Open(curFile)
	require.NoError(t, err)
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	require.NoError(t, err)

	data, _, err := r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, pkt.Data, data)

	data, _, err = r.ReadPacketData()
	require.NoError(t, err)
	assert.Equal(t, pkt.Data, data)
}

func TestPcapSinkRotatesWhenSizeLimitReached(t *testing.T) {
	base := filepath.Join(t.TempDir(), "capture")
	s, err := NewPcapSink(base, 10)
	require.NoError(t, err)
	defer s.Close()

	pkt := &types.Packet{Data: make([]byte, 20), Annotations: types.Annotations{Timestamp: time.Now()}, HasIP: true}
	require.NoError(t, s.Write(pkt))
	first := s.curFileName

	require.NoError(t, s.Write(pkt))
	second := s.curFileName

	assert.NotEqual(t, first, second)
}
