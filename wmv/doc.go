// Package wmv implements a three-frame weighted moving variance estimator
// for per-pixel motion scoring over live image streams.
//
// Responsibilities: frame geometry, the zero-copy rolling window of the
// three most recent frames, the numeric kernels (mono/color × 8-bit/16-bit,
// continuous or thresholded), the per-stream warm-up protocol, and a
// registry that runs many heterogeneous streams concurrently.
// Key types: Geometry, Params, Stream, Engine.
//
// Frame acquisition, decoding, blob extraction and display are the caller's
// concern: the package consumes raw pixel buffers of a registered geometry
// and returns single-channel 8-bit score buffers or binary masks.
//
// Each Stream is owned by one goroutine at a time. Streams share no mutable
// state, so Engine.SubmitAll processes one frame per stream in parallel.
package wmv
