package wmv

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/banshee-data/motion.report/internal/monitoring"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// warmupFrames is the number of frames a stream swallows before the window
// holds three real samples.
const warmupFrames = 2

// State is the warm-up state of a stream.
type State int32

const (
	// StateWarming means fewer than three frames have been ingested.
	StateWarming State = iota
	// StateReady means every submit produces an output frame.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateWarming:
		return "warming"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// StreamOptions controls intra-frame parallelism.
type StreamOptions struct {
	// Parallelism is the number of goroutines that share one frame's pixel
	// range. Values below 2 run the kernel on the calling goroutine.
	Parallelism int
	// MinPartitionPixels is the smallest pixel range handed to a goroutine.
	MinPartitionPixels int
}

// pixelRange is a half-open [lo, hi) range of pixel indices.
type pixelRange struct {
	lo, hi int
}

// StreamStats is a point-in-time snapshot of a stream's counters.
type StreamStats struct {
	ID              StreamID
	Geometry        Geometry
	Kernel          Kernel
	State           State
	FramesSubmitted uint64
	FramesEmitted   uint64
	FramesRejected  uint64
	LastSubmit      time.Time
}

// Stream runs the warm-up protocol and kernel for one image stream. Frames
// must be submitted in temporal order by one goroutine at a time; a
// concurrent Submit is rejected with ErrStreamBusy.
type Stream struct {
	id         StreamID
	geom       Geometry
	kernel     Kernel
	proc       frameProcessor
	partitions []pixelRange
	clock      timeutil.Clock

	params atomic.Pointer[Params]
	busy   atomic.Bool

	// Owned by the goroutine holding busy.
	phase int

	state      atomic.Int32
	submitted  atomic.Uint64
	emitted    atomic.Uint64
	rejected   atomic.Uint64
	lastSubmit atomic.Int64
}

// NewStream allocates the rolling window for g. The geometry is validated
// here so Submit never sees an unsupported format.
func NewStream(id StreamID, g Geometry, p Params, opts StreamOptions) (*Stream, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Stream{
		id:         id,
		geom:       g,
		kernel:     KernelFor(g),
		proc:       newProcessor(g),
		partitions: partitionRows(g.Width, g.Height, opts.Parallelism, opts.MinPartitionPixels),
		clock:      timeutil.RealClock{},
	}
	s.params.Store(&p)
	return s, nil
}

// ID returns the stream's handle.
func (s *Stream) ID() StreamID { return s.id }

// Geometry returns the stream's frame geometry.
func (s *Stream) Geometry() Geometry { return s.geom }

// Kernel returns the kernel variant selected for the stream.
func (s *Stream) Kernel() Kernel { return s.kernel }

// State returns the current warm-up state.
func (s *Stream) State() State { return State(s.state.Load()) }

// Params returns the params used for the next frame.
func (s *Stream) Params() Params { return *s.params.Load() }

// SetParams replaces the params. The rolling window is kept; the change
// applies from the next computed frame.
func (s *Stream) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params.Store(&p)
	return nil
}

// Submit ingests one frame. During warm-up it returns ready=false and a nil
// error. Once ready it writes the score or mask into out, reusing out's
// backing array when it has capacity for PixelCount bytes, and returns it.
//
// A frame whose length differs from the geometry's byte size is rejected with
// ErrFrameSize before anything is ingested.
func (s *Stream) Submit(frame, out []byte) ([]byte, bool, error) {
	if want := s.geom.SizeInBytes(); len(frame) != want {
		s.rejected.Add(1)
		monitoring.Opsf("rejected frame stream=%s got=%d want=%d bytes", s.id, len(frame), want)
		return nil, false, fmt.Errorf("%w: stream %s got %d bytes, want %d", ErrFrameSize, s.id, len(frame), want)
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.rejected.Add(1)
		monitoring.Opsf("rejected concurrent frame stream=%s", s.id)
		return nil, false, fmt.Errorf("%w: %s", ErrStreamBusy, s.id)
	}
	defer s.busy.Store(false)

	s.submitted.Add(1)
	s.lastSubmit.Store(s.clock.Now().UnixNano())

	s.proc.ingest(frame)
	// Rotate on every frame, warm-up included, so the window fills.
	defer s.proc.rotate()

	if s.phase < warmupFrames {
		s.phase++
		if s.phase == warmupFrames {
			s.state.Store(int32(StateReady))
			monitoring.Diagf("stream ready id=%s geometry=%s kernel=%s", s.id, s.geom, s.kernel)
		}
		return nil, false, nil
	}

	n := s.geom.PixelCount()
	if cap(out) < n {
		out = make([]byte, n)
	} else {
		out = out[:n]
	}
	s.compute(out, s.params.Load().ForKernel(s.kernel))
	frames := s.emitted.Add(1)

	if monitoring.TraceEnabled() {
		m := ComputeFrameMetrics(out)
		monitoring.Tracef("frame stream=%s n=%d fg=%d mean=%.2f stddev=%.2f",
			s.id, frames, m.ForegroundPixels, m.MeanScore, m.StdDevScore)
	}
	return out, true, nil
}

// compute runs the kernel over the precomputed partitions.
func (s *Stream) compute(out []byte, kp KernelParams) {
	if len(s.partitions) == 1 {
		s.proc.compute(out, kp, 0, len(out))
		return
	}
	var wg sync.WaitGroup
	for _, r := range s.partitions {
		wg.Go(func() {
			s.proc.compute(out, kp, r.lo, r.hi)
		})
	}
	wg.Wait()
}

// Reset returns the stream to StateWarming. Buffers are kept; the next two
// frames refill the window.
func (s *Stream) Reset() error {
	if !s.busy.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: %s", ErrStreamBusy, s.id)
	}
	defer s.busy.Store(false)
	s.phase = 0
	s.state.Store(int32(StateWarming))
	monitoring.Diagf("stream reset id=%s", s.id)
	return nil
}

// Stats returns a snapshot of the stream's counters.
func (s *Stream) Stats() StreamStats {
	st := StreamStats{
		ID:              s.id,
		Geometry:        s.geom,
		Kernel:          s.kernel,
		State:           s.State(),
		FramesSubmitted: s.submitted.Load(),
		FramesEmitted:   s.emitted.Load(),
		FramesRejected:  s.rejected.Load(),
	}
	if ns := s.lastSubmit.Load(); ns != 0 {
		st.LastSubmit = time.Unix(0, ns)
	}
	return st
}

// partitionRows splits a frame into row-aligned, non-overlapping pixel
// ranges that together cover every pixel exactly once.
func partitionRows(width, height, parallelism, minPixels int) []pixelRange {
	total := width * height
	parts := parallelism
	if minPixels > 0 && total/minPixels < parts {
		parts = total / minPixels
	}
	parts = min(parts, height)
	if parts < 2 {
		return []pixelRange{{lo: 0, hi: total}}
	}

	ranges := make([]pixelRange, 0, parts)
	rowsPer := height / parts
	extra := height % parts
	row := 0
	for i := 0; i < parts; i++ {
		rows := rowsPer
		if i < extra {
			rows++
		}
		ranges = append(ranges, pixelRange{lo: row * width, hi: (row + rows) * width})
		row += rows
	}
	return ranges
}
