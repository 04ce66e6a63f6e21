package engine

import (
	"context"
	"time"

	"github.com/haolipeng/ipsumdump/pkg/types"
)

// Sink receives one emitted packet in push mode.
type Sink func(*types.Packet) error

// idlePollInterval is how often Run rechecks an exhausted source when
// StopAtEOF is false -- the empty-notifier's "sleep" side, since this
// engine has no real wake signal for "more data became available".
const idlePollInterval = 100 * time.Millisecond

// Run drives the engine in push mode: it pulls packets via Next and
// delivers each to sink, pacing against the wall clock when Timing is
// enabled. Reaching EOF halts the driver only when Config.StopAtEOF is
// set; otherwise Run parks and keeps polling the source until ctx is
// canceled, the engine is stopped, or Active is turned off. It returns
// when the engine is stopped, Active is turned off, or ctx is canceled.
func (e *Engine) Run(ctx context.Context, sink Sink) error {
	var timingOffset time.Duration
	var haveOffset bool

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pkt, ok := e.Next()
		if !ok {
			if e.Stopped() || !e.Active() {
				return nil
			}
			if e.AtEOF() && !e.cfg.StopAtEOF {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(idlePollInterval):
					continue
				}
			}
			return nil
		}

		if e.cfg.Timing {
			if !haveOffset {
				timingOffset = time.Since(pkt.Annotations.Timestamp)
				haveOffset = true
			} else if d := time.Until(pkt.Annotations.Timestamp.Add(timingOffset)); d > 0 {
				timer := time.NewTimer(d)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				}
			}
		}

		if err := sink(pkt); err != nil {
			return err
		}
	}
}

// Pull is the pull-mode entry point: one packet per call, sampling
// already applied by Next. Real-time pacing in pull mode is the
// caller's own responsibility, matching the original's distinction
// between a push source's self-driven schedule and a pull consumer's
// own polling cadence.
func (e *Engine) Pull() (*types.Packet, bool) {
	return e.Next()
}
