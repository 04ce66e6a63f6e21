package fields

import (
	"testing"

	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haolipeng/ipsumdump/pkg/types"
)

func TestIPSrcASCIIAndBinaryAgree(t *testing.T) {
	reg := Default()
	fr, ok := reg.Find("ip_src")
	require.True(t, ok)

	pd := types.NewPacketDescriptor(0, nil)
	v, ok := fr.ASCIIParse("10.0.0.1", pd)
	require.True(t, ok)
	fr.Inject(pd, v)
	assert.Equal(t, "10.0.0.1", pd.IP.SrcIP.String())

	pd2 := types.NewPacketDescriptor(0, nil)
	bv, consumed, ok := fr.BinaryParse([]byte{10, 0, 0, 1}, pd2)
	require.True(t, ok)
	assert.Equal(t, 4, consumed)
	fr.Inject(pd2, bv)
	assert.Equal(t, "10.0.0.1", pd2.IP.SrcIP.String())
}

func TestTCPFlagsAcceptsLettersAndDecimal(t *testing.T) {
	reg := Default()
	fr, ok := reg.Find("tcp_flags")
	require.True(t, ok)

	pd := types.NewPacketDescriptor(0, nil)
	v, ok := fr.ASCIIParse("SA", pd)
	require.True(t, ok)
	fr.Inject(pd, v)
	assert.True(t, pd.Transport.(*layers.TCP).SYN)
	assert.True(t, pd.Transport.(*layers.TCP).ACK)
	assert.False(t, pd.Transport.(*layers.TCP).FIN)

	pd2 := types.NewPacketDescriptor(0, nil)
	v2, ok := fr.ASCIIParse("18", pd2)
	require.True(t, ok)
	fr.Inject(pd2, v2)
	tcp := pd2.Transport.(*layers.TCP)
	assert.True(t, tcp.PSH)
	assert.True(t, tcp.ACK)
}

func TestFragOffsetLegacyVersusModernUnits(t *testing.T) {
	reg := Default()
	fr, ok := reg.Find("ip_fragoff")
	require.True(t, ok)

	legacy := types.NewPacketDescriptor(0, nil)
	legacy.MinorVersion = 0
	v, ok := fr.ASCIIParse("800", legacy)
	require.True(t, ok, "800 is divisible by 8 so legacy parsing should accept it")
	fr.Inject(legacy, v)
	assert.Equal(t, uint16(100), legacy.IP.FragOffset)

	_, ok = fr.ASCIIParse("801", legacy)
	assert.False(t, ok, "legacy dumps require offsets divisible by 8")

	modern := types.NewPacketDescriptor(0, nil)
	modern.MinorVersion = 1
	v, ok = fr.ASCIIParse("801", modern)
	require.True(t, ok)
	fr.Inject(modern, v)
	assert.Equal(t, uint16(801), modern.IP.FragOffset)
}

func TestIPOptionsRoundTripThroughTLV(t *testing.T) {
	// type 3, length 7, 5 bytes of data
	raw := []byte{3, 7, 1, 1, 1, 1, 0}
	opts, err := DecodeIPOptions(raw)
	require.NoError(t, err)
	require.Len(t, opts, 1)
	assert.Equal(t, uint8(3), opts[0].OptionType)
	assert.Equal(t, uint8(7), opts[0].OptionLength)
	assert.Equal(t, []byte{1, 1, 1, 1, 0}, opts[0].OptionData)
}

func TestDecodeIPOptionsRejectsTruncatedTLV(t *testing.T) {
	_, err := DecodeIPOptions([]byte{3, 9, 1, 1})
	assert.Error(t, err)
}
