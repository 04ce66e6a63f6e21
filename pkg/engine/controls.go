package engine

// Control Surface: the small set of knobs the original exposes as
// element handlers (active, sampling_prob, encap, stop), reachable here
// from any goroutine. active/stop are the one deliberate exception to
// the engine's otherwise single-goroutine, lock-free design, since a
// surrounding cmd-level signal handler needs to be able to stop the
// engine from outside its read loop.

// Active reports whether the engine is currently permitted to produce
// packets.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// SetActive toggles packet production on or off without discarding any
// in-progress state; Next simply returns ok=false while inactive.
func (e *Engine) SetActive(active bool) {
	e.mu.Lock()
	e.active = active
	e.mu.Unlock()
}

// SamplingProb returns the configured sampling probability, rounded to
// whatever the 28-bit fixed-point threshold actually represents.
func (e *Engine) SamplingProb() float64 {
	return float64(e.samplingThreshold) / float64(samplingScale)
}

// Encap names the encapsulation the engine reconstructs, matching the
// original element's read-only "encap" handler. This engine only ever
// produces bare IP, so it's a constant rather than a Config field.
func (e *Engine) Encap() string { return "IP" }

// Stop requests that the engine halt at the next opportunity; Next
// returns ok=false on its next call and every call after.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopRequested = true
	e.mu.Unlock()
}

// Stopped reports whether Stop has been called.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopRequested
}
