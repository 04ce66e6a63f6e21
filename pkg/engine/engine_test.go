package engine

import (
	"os"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haolipeng/ipsumdump/pkg/fields"
	"github.com/haolipeng/ipsumdump/pkg/source"
	"github.com/haolipeng/ipsumdump/pkg/types"
)

func newTestEngine(t *testing.T, contents string, cfg Config) *Engine {
	t.Helper()
	path := filepath(t, contents)
	cfg.Filename = path
	if cfg.DefaultProto == 0 {
		cfg.DefaultProto = layers.IPProtocolUDP
	}
	cfg.Active = true
	eng, err := NewEngine(cfg, fields.Default(), nil)
	require.NoError(t, err)
	require.NoError(t, eng.Initialize())
	t.Cleanup(func() { eng.Cleanup() })
	return eng
}

func filepath(t *testing.T, contents string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "engine-*.dump")
	require.NoError(t, err)
	_, err = f.WriteString(contents)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func decodeIPv4(t *testing.T, data []byte) (*layers.IPv4, gopacket.Layer) {
	t.Helper()
	pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.Default)
	ipLayer := pkt.Layer(layers.LayerTypeIPv4)
	require.NotNil(t, ipLayer)
	ip := ipLayer.(*layers.IPv4)
	return ip, pkt.TransportLayer()
}

// Scenario 1: a minimal text record with ip_src, ip_dst and ip_proto
// produces a well-formed TCP/IP packet.
func TestScenarioMinimalTCPRecord(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto sport dport\n" +
		"1.2.3.4 5.6.7.8 6 1000 80\n"
	eng := newTestEngine(t, dump, Config{Checksum: true, SampleProb: 1})

	pkt, ok := eng.Next()
	require.True(t, ok)
	require.True(t, pkt.HasIP)

	ip, transport := decodeIPv4(t, pkt.Data)
	assert.Equal(t, "1.2.3.4", ip.SrcIP.String())
	assert.Equal(t, "5.6.7.8", ip.DstIP.String())
	assert.Equal(t, layers.IPProtocolTCP, ip.Protocol)
	require.NotNil(t, transport)
	tcp := transport.(*layers.TCP)
	assert.Equal(t, layers.TCPPort(1000), tcp.SrcPort)
	assert.Equal(t, layers.TCPPort(80), tcp.DstPort)

	_, ok = eng.Next()
	assert.False(t, ok)
}

// Scenario 2: a sticky !flowid default fills in the 5-tuple for a
// record that only carries ip_proto, producing a UDP packet whose
// length is derived entirely by fix-up (uh_ulen = 8, the bare header).
func TestScenarioFlowIDDefaultingProducesBareUDP(t *testing.T) {
	dump := "!flowid 9.9.9.9 111 8.8.8.8 222 U\n" +
		"!data ip_proto\n" +
		"17\n"
	eng := newTestEngine(t, dump, Config{Checksum: false, SampleProb: 1})

	pkt, ok := eng.Next()
	require.True(t, ok)
	require.True(t, pkt.HasIP)

	ip, transport := decodeIPv4(t, pkt.Data)
	assert.Equal(t, "9.9.9.9", ip.SrcIP.String())
	assert.Equal(t, "8.8.8.8", ip.DstIP.String())
	assert.Equal(t, layers.IPProtocolUDP, ip.Protocol)
	require.NotNil(t, transport)
	udp := transport.(*layers.UDP)
	assert.Equal(t, layers.UDPPort(111), udp.SrcPort)
	assert.Equal(t, layers.UDPPort(222), udp.DstPort)
	assert.Equal(t, uint16(8), udp.Length)
	assert.Equal(t, uint16(28), ip.Length) // 20 IP header + 8 UDP header

	_, ok = eng.Next()
	assert.False(t, ok)
}

// Scenario 3: a count-annotated record with multipacket expansion
// enabled yields exactly `count` emitted packets from one record.
func TestScenarioMultiPacketExpansion(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto count\n" +
		"1.1.1.1 2.2.2.2 17 3\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, Multipacket: true})

	var packets []*types.Packet
	for {
		pkt, ok := eng.Next()
		if !ok {
			break
		}
		packets = append(packets, pkt)
	}
	require.Len(t, packets, 3)
	for _, pkt := range packets {
		ip, _ := decodeIPv4(t, pkt.Data)
		assert.Equal(t, "1.1.1.1", ip.SrcIP.String())
	}
}

// Scenario 3b: with multipacket disabled, a count-annotated record
// still yields exactly one packet -- expansion never fires.
func TestScenarioMultiPacketDisabledEmitsOne(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto count\n" +
		"1.1.1.1 2.2.2.2 17 3\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, Multipacket: false})

	_, ok := eng.Next()
	require.True(t, ok)
	_, ok = eng.Next()
	assert.False(t, ok)
}

// Scenario 4: under a pre-1.1 banner, a fragment offset given in legacy
// raw bytes is accepted and converted to 8-byte units (800 -> 100).
func TestScenarioLegacyFragOffsetBanner(t *testing.T) {
	dump := "!IPSummaryDump 1.0\n" +
		"!data ip_src ip_dst ip_proto ip_fragoff\n" +
		"1.1.1.1 2.2.2.2 17 800\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1})

	pkt, ok := eng.Next()
	require.True(t, ok)
	ip, _ := decodeIPv4(t, pkt.Data)
	assert.Equal(t, uint16(100), ip.FragOffset)
}

// Scenario 5: a sampling probability of zero drops every record; no
// packet is ever emitted even though records parse successfully.
func TestScenarioZeroSamplingDropsEverything(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n" +
		"3.3.3.3 4.4.4.4 6\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 0})

	_, ok := eng.Next()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), eng.Metrics().PacketsEmitted)
	assert.Equal(t, uint64(2), eng.Metrics().PacketsSampled)
}

// Scenario 6: a malformed record that injects nothing is skipped, and
// the stream recovers to process the following well-formed record.
func TestScenarioBadRecordRecovery(t *testing.T) {
	var warnings []string
	dump := "!data ip_src ip_dst ip_proto\n" +
		"not-an-ip not-an-ip not-a-proto\n" +
		"1.1.1.1 2.2.2.2 6\n"
	path := filepath(t, dump)

	onError := func(sev source.Severity, landmark, format string, args ...any) {
		warnings = append(warnings, landmark)
	}
	eng, err := NewEngine(Config{Filename: path, SampleProb: 1, Active: true}, fields.Default(), onError)
	require.NoError(t, err)
	require.NoError(t, eng.Initialize())
	defer eng.Cleanup()

	pkt, ok := eng.Next()
	require.True(t, ok)
	ip, _ := decodeIPv4(t, pkt.Data)
	assert.Equal(t, "1.1.1.1", ip.SrcIP.String())
	assert.NotEmpty(t, warnings)

	_, ok = eng.Next()
	assert.False(t, ok)
}

func TestAtEOFBecomesTrueAfterExhaustion(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1})

	assert.False(t, eng.AtEOF())
	_, ok := eng.Next()
	require.True(t, ok)
	_, ok = eng.Next()
	require.False(t, ok)
	assert.True(t, eng.AtEOF())
}

func TestStopHaltsIterationImmediately(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n" +
		"3.3.3.3 4.4.4.4 6\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1})

	eng.Stop()
	_, ok := eng.Next()
	assert.False(t, ok)
}

func TestSetActiveFalseHaltsIteration(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1})

	eng.SetActive(false)
	_, ok := eng.Next()
	assert.False(t, ok)
}

// A pending work-packet slot is preserved, not drained, while the
// engine is inactive or stopped -- it resumes producing the remaining
// clones once Active is reasserted.
func TestInactiveEnginePreservesPendingWorkSlot(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto count\n" +
		"1.1.1.1 2.2.2.2 17 3\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, Multipacket: true})

	pkt, ok := eng.Next()
	require.True(t, ok)
	assert.NotNil(t, pkt)
	require.NotNil(t, eng.work, "expansion should still have two clones pending")

	eng.SetActive(false)
	_, ok = eng.Next()
	assert.False(t, ok)
	assert.NotNil(t, eng.work, "pending work slot must survive an inactive Next call")

	eng.SetActive(true)
	pkt, ok = eng.Next()
	require.True(t, ok, "the preserved clone should resume once active again")
	assert.NotNil(t, pkt)
}

func TestStoppedEnginePreservesPendingWorkSlot(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto count\n" +
		"1.1.1.1 2.2.2.2 17 3\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, Multipacket: true})

	_, ok := eng.Next()
	require.True(t, ok)
	require.NotNil(t, eng.work)

	eng.Stop()
	_, ok = eng.Next()
	assert.False(t, ok)
	assert.NotNil(t, eng.work, "stopping must not drain the pending work slot")
}
