// Package testutil provides shared test utilities and frame fixtures.
//
// Frames are raw interleaved sample buffers; 16-bit samples are
// little-endian. The helpers take plain dimensions so any package can use
// them without an import cycle.
package testutil

import (
	"encoding/binary"
	"math/rand/v2"
)

// Frame8 returns an 8-bit frame holding samples in order.
func Frame8(samples ...uint8) []byte {
	out := make([]byte, len(samples))
	copy(out, samples)
	return out
}

// Frame16 returns a little-endian 16-bit frame holding samples in order.
func Frame16(samples ...uint16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], s)
	}
	return out
}

// SolidFrame returns a frame of sampleCount samples all set to value.
// bytesPerSample is 1 or 2; value is truncated to 8 bits for 1.
func SolidFrame(sampleCount, bytesPerSample int, value uint16) []byte {
	if bytesPerSample == 2 {
		samples := make([]uint16, sampleCount)
		for i := range samples {
			samples[i] = value
		}
		return Frame16(samples...)
	}
	out := make([]byte, sampleCount)
	for i := range out {
		out[i] = uint8(value)
	}
	return out
}

// Scale8To16 widens an 8-bit frame to 16 bits by multiplying every sample
// by 256, keeping relative intensities.
func Scale8To16(frame []byte) []byte {
	samples := make([]uint16, len(frame))
	for i, v := range frame {
		samples[i] = uint16(v) << 8
	}
	return Frame16(samples...)
}

// RandomFrame returns a frame of sampleCount random samples from a seeded
// source, so failures reproduce.
func RandomFrame(rng *rand.Rand, sampleCount, bytesPerSample int) []byte {
	out := make([]byte, sampleCount*bytesPerSample)
	for i := range out {
		out[i] = uint8(rng.IntN(256))
	}
	return out
}

// NewRand returns a deterministic PCG source for fixtures.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
