package wmv

import "errors"

var (
	// ErrInvalidGeometry is returned when a frame geometry has zero
	// dimensions or an unsupported channel count or sample depth.
	ErrInvalidGeometry = errors.New("wmv: invalid geometry")

	// ErrInvalidParams is returned for weights or thresholds that are
	// negative, non-finite, or sum to zero.
	ErrInvalidParams = errors.New("wmv: invalid params")

	// ErrFrameSize is returned when a submitted frame's byte length does not
	// match the stream's geometry. The frame is not ingested.
	ErrFrameSize = errors.New("wmv: frame size mismatch")

	// ErrUnknownStream is returned for handles that were never registered or
	// have been deregistered.
	ErrUnknownStream = errors.New("wmv: unknown stream")

	// ErrStreamBusy is returned when a frame is submitted to a stream that is
	// already processing one on another goroutine.
	ErrStreamBusy = errors.New("wmv: stream busy")

	// ErrDuplicateStream is returned when one SubmitAll batch carries more
	// than one frame for the same stream.
	ErrDuplicateStream = errors.New("wmv: duplicate stream in batch")
)
