package wmv

import (
	"fmt"
	"math"
)

// Supported channel counts and sample depths.
const (
	ChannelsMono  = 1
	ChannelsColor = 3

	BytesPerSample8  = 1
	BytesPerSample16 = 2
)

// Geometry describes the shape of every frame in one stream. It is fixed at
// registration; all window slots are sized from it.
//
// 16-bit samples are little-endian in the caller's buffer. Color frames are
// interleaved, conventionally R, G, B.
type Geometry struct {
	Width          int
	Height         int
	Channels       int // 1 or 3
	BytesPerSample int // 1 or 2
}

// NewGeometry builds and validates a Geometry.
func NewGeometry(width, height, channels, bytesPerSample int) (Geometry, error) {
	g := Geometry{
		Width:          width,
		Height:         height,
		Channels:       channels,
		BytesPerSample: bytesPerSample,
	}
	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}
	return g, nil
}

// Validate reports whether the geometry is usable.
// Returned errors wrap ErrInvalidGeometry.
func (g Geometry) Validate() error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("%w: dimensions must be positive, got %dx%d", ErrInvalidGeometry, g.Width, g.Height)
	}
	if g.Channels != ChannelsMono && g.Channels != ChannelsColor {
		return fmt.Errorf("%w: channel count must be 1 or 3, got %d", ErrInvalidGeometry, g.Channels)
	}
	if g.BytesPerSample != BytesPerSample8 && g.BytesPerSample != BytesPerSample16 {
		return fmt.Errorf("%w: bytes per sample must be 1 or 2, got %d", ErrInvalidGeometry, g.BytesPerSample)
	}
	if g.Width > math.MaxInt/g.Height/(g.Channels*g.BytesPerSample) {
		return fmt.Errorf("%w: %dx%d frame size overflows", ErrInvalidGeometry, g.Width, g.Height)
	}
	return nil
}

// PixelCount is width × height. It is also the output buffer length.
func (g Geometry) PixelCount() int { return g.Width * g.Height }

// SampleCount is the number of samples per frame across all channels.
func (g Geometry) SampleCount() int { return g.PixelCount() * g.Channels }

// SizeInBytes is the exact byte length of every submitted frame.
func (g Geometry) SizeInBytes() int { return g.SampleCount() * g.BytesPerSample }

// BitDepth is the sample depth in bits.
func (g Geometry) BitDepth() int { return g.BytesPerSample * 8 }

// IsColor reports whether frames carry three channels.
func (g Geometry) IsColor() bool { return g.Channels == ChannelsColor }

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%dx%d@%dbit", g.Width, g.Height, g.Channels, g.BitDepth())
}
