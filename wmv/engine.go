package wmv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/timeutil"
	"github.com/banshee-data/motion.report/internal/version"
)

// StreamID is an opaque stream handle issued by Engine.Register.
type StreamID string

func (id StreamID) String() string { return string(id) }

// Frame is one stream's input for a SubmitAll cycle. Out is optional
// storage reused for the result.
type Frame struct {
	Stream StreamID
	Data   []byte
	Out    []byte
}

// Output is one stream's result for a SubmitAll cycle. Ready is false during
// warm-up or when Err is set.
type Output struct {
	Stream StreamID
	Data   []byte
	Ready  bool
	Err    error
}

// Engine maps stream handles to independent streams and drives them in
// parallel. Streams may differ in resolution, channel count and depth.
type Engine struct {
	mu      sync.RWMutex
	streams map[StreamID]*Stream
	params  Params

	opts          StreamOptions
	maxConcurrent int
	clock         timeutil.Clock
}

// NewEngine creates an Engine from cfg. A nil cfg uses DefaultConfig.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	params, err := cfg.ToParams()
	if err != nil {
		return nil, err
	}
	monitoring.Opsf("engine %s: weights=%v threshold=%t parallelism=%d max_streams=%d",
		version.String(), params.Weights, params.EnableThreshold, cfg.Parallelism, cfg.MaxConcurrentStreams)
	return &Engine{
		streams:       make(map[StreamID]*Stream),
		params:        params,
		opts:          cfg.ToStreamOptions(),
		maxConcurrent: cfg.MaxConcurrentStreams,
		clock:         timeutil.RealClock{},
	}, nil
}

// Register validates g, allocates the stream's window and returns its handle.
// Unsupported geometries are rejected here, never at Submit.
func (e *Engine) Register(g Geometry) (StreamID, error) {
	id := StreamID(uuid.NewString())

	e.mu.RLock()
	params, opts, clock := e.params, e.opts, e.clock
	e.mu.RUnlock()

	s, err := NewStream(id, g, params, opts)
	if err != nil {
		return "", fmt.Errorf("register stream: %w", err)
	}
	s.clock = clock

	e.mu.Lock()
	// Configure may have run while the window was being allocated.
	current := e.params
	s.params.Store(&current)
	e.streams[id] = s
	e.mu.Unlock()

	monitoring.Diagf("registered stream id=%s geometry=%s kernel=%s partitions=%d",
		id, g, s.kernel, len(s.partitions))
	return id, nil
}

// Deregister drops a stream and its buffers.
func (e *Engine) Deregister(id StreamID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.streams[id]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStream, id)
	}
	delete(e.streams, id)
	monitoring.Diagf("deregistered stream id=%s", id)
	return nil
}

// Stream returns the registered stream for id.
func (e *Engine) Stream(id StreamID) (*Stream, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.streams[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStream, id)
	}
	return s, nil
}

// Len returns the number of registered streams.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.streams)
}

// Params returns the params applied to newly registered streams.
func (e *Engine) Params() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// Configure applies p to every registered stream and to future
// registrations. Rolling windows are kept.
func (e *Engine) Configure(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.params = p
	for _, s := range e.streams {
		// p is already validated.
		_ = s.SetParams(p)
	}
	monitoring.Diagf("configured %d streams weights=%v threshold=%t", len(e.streams), p.Weights, p.EnableThreshold)
	return nil
}

// ConfigureStream applies p to a single stream.
func (e *Engine) ConfigureStream(id StreamID, p Params) error {
	s, err := e.Stream(id)
	if err != nil {
		return err
	}
	return s.SetParams(p)
}

// Submit feeds one frame to one stream. See Stream.Submit.
func (e *Engine) Submit(id StreamID, frame, out []byte) ([]byte, bool, error) {
	s, err := e.Stream(id)
	if err != nil {
		return nil, false, err
	}
	return s.Submit(frame, out)
}

// SubmitAll runs one frame per stream concurrently and waits for all of
// them. Outputs are in input order. A failing stream does not stop the
// others; its error is reported in its Output and joined into the returned
// error. Cancelling ctx skips streams that have not started yet.
func (e *Engine) SubmitAll(ctx context.Context, frames []Frame) ([]Output, error) {
	outputs := make([]Output, len(frames))
	streams := make([]*Stream, len(frames))
	seen := make(map[StreamID]struct{}, len(frames))

	e.mu.RLock()
	for i, f := range frames {
		outputs[i].Stream = f.Stream
		if _, dup := seen[f.Stream]; dup {
			e.mu.RUnlock()
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStream, f.Stream)
		}
		seen[f.Stream] = struct{}{}
		s, ok := e.streams[f.Stream]
		if !ok {
			outputs[i].Err = fmt.Errorf("%w: %s", ErrUnknownStream, f.Stream)
			continue
		}
		streams[i] = s
	}
	limit := e.maxConcurrent
	e.mu.RUnlock()

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, s := range streams {
		if s == nil {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outputs[i].Err = err
				return nil
			}
			data, ready, err := s.Submit(frames[i].Data, frames[i].Out)
			outputs[i].Data, outputs[i].Ready, outputs[i].Err = data, ready, err
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, o := range outputs {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("stream %s: %w", o.Stream, o.Err))
		}
	}
	return outputs, errors.Join(errs...)
}

// Stats returns a snapshot of every stream's counters.
func (e *Engine) Stats() map[StreamID]StreamStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats := make(map[StreamID]StreamStats, len(e.streams))
	for id, s := range e.streams {
		stats[id] = s.Stats()
	}
	return stats
}
