package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/uakbr/bypass-methods/internal/config"
	"github.com/uakbr/bypass-methods/internal/logging"
)

var log = logging.L("capture")

// Options carries the engine knobs derived from configuration.
type Options struct {
	Chain              []BackendID
	LuminanceThreshold float64
	AcquireTimeout     time.Duration
	CompositionTimeout time.Duration
}

// Engine drives the fallback chain: it owns the capability table, the
// validator, and every session-based backend (including the per-output
// duplication sessions). There are no package-level registries; everything
// hangs off this object.
type Engine struct {
	chain     []BackendID
	backends  map[BackendID]Backend
	caps      *Capabilities
	validator Validator
	resolver  Resolver

	mu     sync.Mutex
	closed bool
}

// New constructs the engine for this platform from loaded configuration.
func New(cfg *config.Config) (*Engine, error) {
	chain := make([]BackendID, 0, len(cfg.FallbackChain))
	for _, name := range cfg.FallbackChain {
		id, err := ParseBackendID(name)
		if err != nil {
			return nil, fmt.Errorf("fallback chain: %w", err)
		}
		chain = append(chain, id)
	}

	opts := Options{
		Chain:              chain,
		LuminanceThreshold: cfg.LuminanceThreshold,
		AcquireTimeout:     time.Duration(cfg.AcquireTimeoutMs) * time.Millisecond,
		CompositionTimeout: time.Duration(cfg.CompositionTimeoutMs) * time.Millisecond,
	}

	resolver, backends, caps, err := newPlatformParts(opts)
	if err != nil {
		return nil, err
	}

	return newEngine(resolver, backends, caps, Validator{Threshold: opts.LuminanceThreshold}, chain), nil
}

// newEngine wires explicit parts. Tests use it to inject fakes.
func newEngine(resolver Resolver, backends map[BackendID]Backend, caps *Capabilities, v Validator, chain []BackendID) *Engine {
	fixed := make([]BackendID, len(chain))
	copy(fixed, chain)
	return &Engine{
		chain:     fixed,
		backends:  backends,
		caps:      caps,
		validator: v,
		resolver:  resolver,
	}
}

// Capabilities exposes a snapshot of backend availability.
func (e *Engine) Capabilities() map[BackendID]bool {
	return e.caps.Snapshot()
}

// Capture resolves the target and walks the chain in fixed order, returning
// the first validated frame. It never panics: every backend invocation runs
// inside an isolating boundary, and exhaustion is reported as a value.
func (e *Engine) Capture(target Target) (*Frame, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, fmt.Errorf("capture engine is closed")
	}
	e.mu.Unlock()

	res, err := e.resolver.Resolve(target)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}

	var attempts []Attempt
	for _, id := range e.chain {
		backend, ok := e.backends[id]
		if !ok || !e.caps.Available(id) {
			continue
		}

		start := time.Now()
		frame, berr := e.invoke(backend, res)
		if berr != nil {
			if berr.Kind == KindUnsupported {
				log.Warn("backend unsupported, disabled for this process",
					logging.KeyBackend, string(id), logging.KeyError, berr.Err)
				e.caps.Disable(id)
			} else {
				log.Debug("backend failed, falling through",
					logging.KeyBackend, string(id), logging.KeyError, berr.Err)
			}
			attempts = append(attempts, Attempt{Backend: id, Reason: berr.Err.Error()})
			continue
		}

		frame.Backend = id
		frame.Elapsed = time.Since(start)

		if verr := e.validator.Check(frame); verr != nil {
			log.Debug("frame rejected by validator",
				logging.KeyBackend, string(id), logging.KeyError, verr.Err)
			attempts = append(attempts, Attempt{Backend: id, Reason: verr.Err.Error()})
			continue
		}

		log.Info("capture succeeded",
			logging.KeyBackend, string(id),
			"width", frame.Width, "height", frame.Height,
			logging.KeyDurationMs, frame.Elapsed.Milliseconds())
		return frame, nil
	}

	return nil, &ExhaustedError{Attempts: attempts}
}

// invoke is the isolating boundary: a panicking backend becomes a Failure
// value instead of unwinding past the orchestrator.
func (e *Engine) invoke(b Backend, res Resolved) (frame *Frame, berr *BackendError) {
	defer func() {
		if r := recover(); r != nil {
			frame = nil
			berr = backendErr(b.ID(), KindInit, "backend panicked: %v", r)
		}
	}()
	return b.Capture(res)
}

// Close synchronously tears down every session-based backend. Idempotent and
// tolerant of sessions that are mid-initialization or in an error state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	var firstErr error
	for id, b := range e.backends {
		if c, ok := b.(closer); ok {
			if err := c.Close(); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("close %s: %w", id, err)
			}
		}
	}
	return firstErr
}
