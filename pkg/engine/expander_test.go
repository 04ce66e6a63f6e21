package engine

import (
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haolipeng/ipsumdump/pkg/types"
)

func newTestIPDescriptor(t *testing.T, payloadLen int) *types.PacketDescriptor {
	t.Helper()
	pd := types.NewPacketDescriptor(layers.IPProtocolUDP, nil)
	ip := pd.EnsureIP()
	ip.SrcIP = []byte{1, 2, 3, 4}
	ip.DstIP = []byte{5, 6, 7, 8}
	udp := pd.EnsureUDP()
	udp.SrcPort = 1000
	udp.DstPort = 2000
	pd.Payload = make([]byte, payloadLen)
	return pd
}

func TestExpansionDividesLengthAcrossClones(t *testing.T) {
	pd := newTestIPDescriptor(t, 10)
	bufLen := pd.NetworkLength() // 20(hdr) + 8(udp) + 10(payload) = 38
	// chosen so total/count lands exactly on bufLen -- no clamping kicks in
	pd.Annotations.ExtraLength = int32(bufLen*4 - bufLen)
	x := newExpansion(pd, 4)

	require.Len(t, x.lengths, 4)
	sum := 0
	for _, l := range x.lengths {
		sum += l
		assert.GreaterOrEqual(t, l, bufLen)
	}
	assert.Equal(t, bufLen*4, sum)
}

func TestExpansionTimestampsInterpolateLinearly(t *testing.T) {
	pd := newTestIPDescriptor(t, 0)
	pd.Annotations.HasFirst = true
	pd.Annotations.FirstTimestamp = time.Unix(1000, 0)
	pd.Annotations.Timestamp = time.Unix(1010, 0)
	x := newExpansion(pd, 5)

	assert.Equal(t, time.Unix(1000, 0), x.timestampFor(0))
	assert.Equal(t, time.Unix(1010, 0), x.timestampFor(4))
	// one quarter of the way from 1000 to 1010
	assert.Equal(t, time.Unix(1000, 0).Add(2500*time.Millisecond), x.timestampFor(1))
}

func TestExpansionWithoutFirstTimestampRepeatsSource(t *testing.T) {
	pd := newTestIPDescriptor(t, 0)
	pd.Annotations.Timestamp = time.Unix(42, 0)
	x := newExpansion(pd, 3)

	for i := uint32(0); i < 3; i++ {
		assert.Equal(t, time.Unix(42, 0), x.timestampFor(i))
	}
}

func TestExpansionNextDrainsExactlyCountClones(t *testing.T) {
	pd := newTestIPDescriptor(t, 4)
	x := newExpansion(pd, 3)

	for i := 0; i < 3; i++ {
		clone, ok := x.next()
		require.True(t, ok)
		assert.NotNil(t, clone)
		assert.Zero(t, clone.Annotations.ExtraPackets)
	}
	_, ok := x.next()
	assert.False(t, ok)
	assert.True(t, x.done())
}

func TestSetPacketLengthUpdatesUDPLength(t *testing.T) {
	pd := newTestIPDescriptor(t, 4)
	setPacketLength(pd, 100)
	assert.Equal(t, uint16(100), pd.IP.Length)
	udp := pd.Transport.(*layers.UDP)
	assert.Equal(t, uint16(100-pd.IPHeaderLength()), udp.Length)
}
