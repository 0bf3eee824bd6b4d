package wmv

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/motion.report/internal/testutil"
	"github.com/banshee-data/motion.report/internal/timeutil"
)

// newTestStream builds a 4x1 mono 8-bit stream with weights (0.5, 0.3, 0.2).
func newTestStream(t *testing.T, threshold bool, thr float32) *Stream {
	t.Helper()
	g, err := NewGeometry(4, 1, ChannelsMono, BytesPerSample8)
	require.NoError(t, err)
	p, err := NewParams([3]float32{0.5, 0.3, 0.2}, threshold, thr, thr*256)
	require.NoError(t, err)
	s, err := NewStream("test-stream", g, p, StreamOptions{})
	require.NoError(t, err)
	return s
}

func TestStream_WarmupLength(t *testing.T) {
	t.Parallel()

	for _, g := range []Geometry{
		{Width: 4, Height: 1, Channels: 1, BytesPerSample: 1},
		{Width: 3, Height: 2, Channels: 1, BytesPerSample: 2},
		{Width: 2, Height: 2, Channels: 3, BytesPerSample: 1},
		{Width: 5, Height: 3, Channels: 3, BytesPerSample: 2},
	} {
		s, err := NewStream("warmup", g, DefaultParams(), StreamOptions{})
		require.NoError(t, err)
		assert.Equal(t, StateWarming, s.State())

		frame := testutil.SolidFrame(g.SampleCount(), g.BytesPerSample, 7)
		for i := 0; i < 10; i++ {
			out, ready, err := s.Submit(frame, nil)
			require.NoError(t, err)
			if i < 2 {
				assert.False(t, ready, "%s: submit %d should not be ready", g, i+1)
				assert.Nil(t, out)
				continue
			}
			assert.True(t, ready, "%s: submit %d should be ready", g, i+1)
			assert.Len(t, out, g.PixelCount(), "output is always single-channel")
		}
		assert.Equal(t, StateReady, s.State())
	}
}

func TestStream_ContinuousScenario(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	flat := testutil.Frame8(10, 10, 10, 10)

	_, ready, err := s.Submit(flat, nil)
	require.NoError(t, err)
	require.False(t, ready)
	_, ready, err = s.Submit(flat, nil)
	require.NoError(t, err)
	require.False(t, ready)

	out, ready, err := s.Submit(flat, nil)
	require.NoError(t, err)
	require.True(t, ready)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)

	out, ready, err = s.Submit(testutil.Frame8(50, 10, 10, 10), out)
	require.NoError(t, err)
	require.True(t, ready)
	assert.Positive(t, out[0])
	assert.InDelta(t, 20, out[0], 1)
	assert.Equal(t, []byte{0, 0, 0}, out[1:])
}

func TestStream_ThresholdScenario(t *testing.T) {
	t.Parallel()

	// A 40-unit jump gives variance 400; threshold 19 (361) flags it.
	s := newTestStream(t, true, 19)
	flat := testutil.Frame8(10, 10, 10, 10)
	for i := 0; i < 3; i++ {
		_, _, err := s.Submit(flat, nil)
		require.NoError(t, err)
	}
	out, ready, err := s.Submit(testutil.Frame8(50, 10, 10, 10), nil)
	require.NoError(t, err)
	require.True(t, ready)
	assert.Equal(t, []byte{255, 0, 0, 0}, out)

	// Threshold 21 (441) sits above the same jump.
	s = newTestStream(t, true, 21)
	for i := 0; i < 3; i++ {
		_, _, err := s.Submit(flat, nil)
		require.NoError(t, err)
	}
	out, _, err = s.Submit(testutil.Frame8(50, 10, 10, 10), nil)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 0}, out)
}

func TestStream_JumpDecaysThroughWindow(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, true, 5)
	flat := testutil.Frame8(10, 10, 10, 10)
	jump := testutil.Frame8(50, 10, 10, 10)

	seq := [][]byte{flat, flat, flat, jump, flat, flat, flat}
	var masks [][]byte
	for _, f := range seq {
		out, ready, err := s.Submit(f, nil)
		require.NoError(t, err)
		if ready {
			masks = append(masks, out)
		}
	}
	// The jump stays in the window for three frames: current, previous-1,
	// previous-2, then disappears.
	require.Len(t, masks, 5)
	assert.Equal(t, byte(0), masks[0][0])
	assert.Equal(t, byte(255), masks[1][0])
	assert.Equal(t, byte(255), masks[2][0])
	assert.Equal(t, byte(255), masks[3][0])
	assert.Equal(t, byte(0), masks[4][0])
}

func TestStream_FrameSizeMismatch(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	flat := testutil.Frame8(10, 10, 10, 10)

	_, _, err := s.Submit(flat, nil)
	require.NoError(t, err)
	rotations := s.proc.rotations()

	for _, bad := range [][]byte{nil, {1, 2, 3}, {1, 2, 3, 4, 5}} {
		out, ready, err := s.Submit(bad, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFrameSize))
		assert.False(t, ready)
		assert.Nil(t, out)
	}
	assert.Equal(t, rotations, s.proc.rotations(), "rejected frames must not rotate the window")

	// Warm-up still needs exactly one more frame.
	_, ready, err := s.Submit(flat, nil)
	require.NoError(t, err)
	assert.False(t, ready)
	_, ready, err = s.Submit(flat, nil)
	require.NoError(t, err)
	assert.True(t, ready)

	assert.Equal(t, uint64(3), s.Stats().FramesRejected)
}

func TestStream_BusyRejected(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	s.busy.Store(true)

	_, _, err := s.Submit(testutil.Frame8(1, 2, 3, 4), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStreamBusy))
	assert.Equal(t, uint64(0), s.Stats().FramesSubmitted)
	assert.Equal(t, uint64(1), s.proc.rotations())

	assert.True(t, errors.Is(s.Reset(), ErrStreamBusy))

	s.busy.Store(false)
	_, _, err = s.Submit(testutil.Frame8(1, 2, 3, 4), nil)
	assert.NoError(t, err)
}

func TestStream_OutputReuse(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	flat := testutil.Frame8(10, 10, 10, 10)
	for i := 0; i < 2; i++ {
		_, _, err := s.Submit(flat, nil)
		require.NoError(t, err)
	}

	buf := make([]byte, 0, 16)
	out, ready, err := s.Submit(flat, buf)
	require.NoError(t, err)
	require.True(t, ready)
	assert.Len(t, out, 4)
	assert.Same(t, &buf[:1][0], &out[0], "output should reuse the caller's backing array")

	small := make([]byte, 2)
	out, _, err = s.Submit(flat, small)
	require.NoError(t, err)
	assert.Len(t, out, 4)
}

func TestStream_SetParamsMidStream(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	flat := testutil.Frame8(10, 10, 10, 10)
	for i := 0; i < 3; i++ {
		_, _, err := s.Submit(flat, nil)
		require.NoError(t, err)
	}

	p, err := NewParams([3]float32{0.5, 0.3, 0.2}, true, 19, 19*256)
	require.NoError(t, err)
	require.NoError(t, s.SetParams(p))
	assert.Equal(t, p, s.Params())

	// Window is kept: the very next frame is thresholded.
	out, ready, err := s.Submit(testutil.Frame8(50, 10, 10, 10), nil)
	require.NoError(t, err)
	require.True(t, ready)
	assert.Equal(t, []byte{255, 0, 0, 0}, out)

	assert.Error(t, s.SetParams(Params{}))
}

func TestStream_Reset(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	flat := testutil.Frame8(10, 10, 10, 10)
	for i := 0; i < 3; i++ {
		_, _, err := s.Submit(flat, nil)
		require.NoError(t, err)
	}
	require.Equal(t, StateReady, s.State())

	require.NoError(t, s.Reset())
	assert.Equal(t, StateWarming, s.State())

	for i := 0; i < 2; i++ {
		_, ready, err := s.Submit(flat, nil)
		require.NoError(t, err)
		assert.False(t, ready)
	}
	_, ready, err := s.Submit(flat, nil)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestStream_Stats(t *testing.T) {
	t.Parallel()

	s := newTestStream(t, false, 0)
	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(start)
	s.clock = clock

	assert.True(t, s.Stats().LastSubmit.IsZero())

	flat := testutil.Frame8(10, 10, 10, 10)
	for i := 0; i < 5; i++ {
		clock.Advance(40 * time.Millisecond)
		_, _, err := s.Submit(flat, nil)
		require.NoError(t, err)
	}
	_, _, _ = s.Submit([]byte{1}, nil)

	want := StreamStats{
		ID:              "test-stream",
		Geometry:        Geometry{Width: 4, Height: 1, Channels: 1, BytesPerSample: 1},
		Kernel:          KernelMono8,
		State:           StateReady,
		FramesSubmitted: 5,
		FramesEmitted:   3,
		FramesRejected:  1,
		LastSubmit:      start.Add(200 * time.Millisecond),
	}
	if diff := cmp.Diff(want, s.Stats()); diff != "" {
		t.Errorf("Stats() mismatch (-want +got):\n%s", diff)
	}
}

func TestStream_ParallelMatchesSerial(t *testing.T) {
	t.Parallel()

	for _, g := range []Geometry{
		{Width: 37, Height: 13, Channels: 3, BytesPerSample: 1},
		{Width: 16, Height: 9, Channels: 1, BytesPerSample: 2},
	} {
		p := DefaultParams()
		p.EnableThreshold = false

		serial, err := NewStream("serial", g, p, StreamOptions{})
		require.NoError(t, err)
		parallel, err := NewStream("parallel", g, p, StreamOptions{Parallelism: 4, MinPartitionPixels: 1})
		require.NoError(t, err)
		require.Len(t, parallel.partitions, 4)

		rng := testutil.NewRand(11)
		for i := 0; i < 8; i++ {
			frame := testutil.RandomFrame(rng, g.SampleCount(), g.BytesPerSample)
			a, readyA, err := serial.Submit(frame, nil)
			require.NoError(t, err)
			b, readyB, err := parallel.Submit(frame, nil)
			require.NoError(t, err)
			require.Equal(t, readyA, readyB)
			require.Equal(t, a, b, "%s frame %d", g, i)
		}
	}
}

func TestPartitionRows(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name                      string
		width, height, par, minPx int
		wantParts                 int
	}{
		{name: "serial", width: 640, height: 480, par: 1, minPx: 0, wantParts: 1},
		{name: "zero parallelism", width: 640, height: 480, par: 0, minPx: 0, wantParts: 1},
		{name: "four ways", width: 640, height: 480, par: 4, minPx: 0, wantParts: 4},
		{name: "uneven rows", width: 10, height: 7, par: 3, minPx: 0, wantParts: 3},
		{name: "capped by height", width: 100, height: 2, par: 8, minPx: 0, wantParts: 2},
		{name: "capped by min pixels", width: 100, height: 100, par: 8, minPx: 4000, wantParts: 2},
		{name: "too small to split", width: 10, height: 10, par: 8, minPx: 16384, wantParts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ranges := partitionRows(tt.width, tt.height, tt.par, tt.minPx)
			require.Len(t, ranges, tt.wantParts)

			next := 0
			for _, r := range ranges {
				assert.Equal(t, next, r.lo, "ranges must be contiguous")
				assert.Greater(t, r.hi, r.lo)
				assert.Zero(t, r.lo%tt.width, "ranges must start on a row")
				next = r.hi
			}
			assert.Equal(t, tt.width*tt.height, next, "ranges must cover every pixel")
		})
	}
}

func TestNewStream_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewStream("bad", Geometry{Width: 2, Height: 2, Channels: 2, BytesPerSample: 1}, DefaultParams(), StreamOptions{})
	assert.True(t, errors.Is(err, ErrInvalidGeometry))

	_, err = NewStream("bad", Geometry{Width: 2, Height: 2, Channels: 1, BytesPerSample: 1}, Params{}, StreamOptions{})
	assert.True(t, errors.Is(err, ErrInvalidParams))
}

func TestState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "warming", StateWarming.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "State(7)", State(7).String())
}

func TestStream_DepthIndependentMasks(t *testing.T) {
	t.Parallel()

	rng := testutil.NewRand(21)
	for _, channels := range []int{ChannelsMono, ChannelsColor} {
		g8, err := NewGeometry(32, 16, channels, BytesPerSample8)
		require.NoError(t, err)
		g16, err := NewGeometry(32, 16, channels, BytesPerSample16)
		require.NoError(t, err)

		s8, err := NewStream("depth-8", g8, DefaultParams(), StreamOptions{})
		require.NoError(t, err)
		s16, err := NewStream("depth-16", g16, DefaultParams(), StreamOptions{})
		require.NoError(t, err)

		base := testutil.RandomFrame(rng, g8.SampleCount(), 1)
		flagged, total := 0, 0
		for i := 0; i < 6; i++ {
			// Noise around a fixed scene keeps the mask mixed.
			f8 := make([]byte, len(base))
			for j, v := range base {
				f8[j] = uint8(min(max(int(v)+rng.IntN(41)-20, 0), 255))
			}

			out8, ready8, err := s8.Submit(f8, nil)
			require.NoError(t, err)
			out16, ready16, err := s16.Submit(testutil.Scale8To16(f8), nil)
			require.NoError(t, err)
			require.Equal(t, ready8, ready16, "frame %d", i)
			if !ready8 {
				continue
			}
			require.Equal(t, out8, out16, "channels=%d frame %d", channels, i)
			for _, m := range out8 {
				total++
				if m == 255 {
					flagged++
				}
			}
		}
		assert.NotZero(t, flagged, "channels=%d: no pixel flagged", channels)
		assert.Less(t, flagged, total, "channels=%d: every pixel flagged", channels)
	}
}
