package wmv

import "encoding/binary"

// rollingIndex maps counter%3 to the (current, previous-1, previous-2) slot
// indices. Each row is the previous row rotated so that the old current slot
// becomes previous-1, previous-1 becomes previous-2, and previous-2 is
// recycled as the next current slot.
var rollingIndex = [3][3]int{
	{2, 1, 0},
	{0, 2, 1},
	{1, 0, 2},
}

// frameProcessor is the depth/channel-erased view of a window plus its
// kernel, selected once when a stream is created.
type frameProcessor interface {
	// ingest decodes one frame into the current slot. src must be exactly
	// the geometry's byte size.
	ingest(src []byte)
	// compute writes out[lo:hi] from the three rotated views.
	compute(out []byte, kp KernelParams, lo, hi int)
	rotate()
	roles() (current, prev1, prev2 int)
	rotations() uint64
}

type kernelFunc[T Sample] func(cur, prev1, prev2 []T, out []byte, kp KernelParams)

type loadFunc[T Sample] func(dst []T, src []byte)

// window holds three same-sized sample buffers addressed by role.
// Roles are indices into slots; rotation never moves sample data.
type window[T Sample] struct {
	slots    [3][]T
	channels int
	load     loadFunc[T]
	kernel   kernelFunc[T]

	counter uint64
	cur     int
	prev1   int
	prev2   int
}

func newWindow[T Sample](g Geometry, load loadFunc[T], kernel kernelFunc[T]) *window[T] {
	w := &window[T]{
		channels: g.Channels,
		load:     load,
		kernel:   kernel,
	}
	n := g.SampleCount()
	for i := range w.slots {
		w.slots[i] = make([]T, n)
	}
	// Roles must be well-defined before the first ingest.
	w.rotate()
	return w
}

func (w *window[T]) rotate() {
	idx := rollingIndex[w.counter%3]
	w.cur, w.prev1, w.prev2 = idx[0], idx[1], idx[2]
	w.counter++
}

func (w *window[T]) roles() (current, prev1, prev2 int) {
	return w.cur, w.prev1, w.prev2
}

func (w *window[T]) rotations() uint64 { return w.counter }

func (w *window[T]) views() (cur, prev1, prev2 []T) {
	return w.slots[w.cur], w.slots[w.prev1], w.slots[w.prev2]
}

func (w *window[T]) ingest(src []byte) {
	w.load(w.slots[w.cur], src)
}

func (w *window[T]) compute(out []byte, kp KernelParams, lo, hi int) {
	cur, prev1, prev2 := w.views()
	slo, shi := lo*w.channels, hi*w.channels
	w.kernel(cur[slo:shi], prev1[slo:shi], prev2[slo:shi], out[lo:hi], kp)
}

func load8(dst []uint8, src []byte) {
	copy(dst, src)
}

// load16 decodes little-endian 16-bit samples.
func load16(dst []uint16, src []byte) {
	src = src[:2*len(dst)]
	for i := range dst {
		dst[i] = binary.LittleEndian.Uint16(src[2*i:])
	}
}

// newProcessor picks the window sample type and kernel for a geometry.
func newProcessor(g Geometry) frameProcessor {
	switch KernelFor(g) {
	case KernelMono16:
		return newWindow[uint16](g, load16, VarianceMono[uint16])
	case KernelColor8:
		return newWindow[uint8](g, load8, VarianceColor[uint8])
	case KernelColor16:
		return newWindow[uint16](g, load16, VarianceColor[uint16])
	default:
		return newWindow[uint8](g, load8, VarianceMono[uint8])
	}
}
