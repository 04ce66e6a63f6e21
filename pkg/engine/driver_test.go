package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haolipeng/ipsumdump/pkg/types"
)

func TestRunHaltsAtEOFWhenStopAtEOFConfigured(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, StopAtEOF: true})

	var received []*types.Packet
	err := eng.Run(context.Background(), func(pkt *types.Packet) error {
		received = append(received, pkt)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, received, 1)
}

// Without StopAtEOF, reaching EOF must not halt the driver: Run should
// park and keep polling until the engine is stopped or ctx is canceled.
func TestRunIdlesAtEOFWithoutStopAtEOF(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, StopAtEOF: false})

	done := make(chan error, 1)
	var received []*types.Packet
	go func() {
		done <- eng.Run(context.Background(), func(pkt *types.Packet) error {
			received = append(received, pkt)
			return nil
		})
	}()

	select {
	case err := <-done:
		t.Fatalf("Run returned early (err=%v) instead of idling past EOF", err)
	case <-time.After(3 * idlePollInterval):
	}

	eng.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop while idling")
	}
	assert.Len(t, received, 1)
}

func TestRunStopsImmediatelyEvenWithoutStopAtEOF(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n" +
		"3.3.3.3 4.4.4.4 6\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, StopAtEOF: false})
	eng.Stop()

	err := eng.Run(context.Background(), func(*types.Packet) error { return nil })
	require.NoError(t, err)
}

func TestRunRespectsContextCancellationWhileIdling(t *testing.T) {
	dump := "!data ip_src ip_dst ip_proto\n" +
		"1.1.1.1 2.2.2.2 17\n"
	eng := newTestEngine(t, dump, Config{SampleProb: 1, StopAtEOF: false})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx, func(*types.Packet) error { return nil })
	}()

	time.Sleep(2 * idlePollInterval)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation while idling")
	}
}
