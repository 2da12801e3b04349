package synchro

import "errors"

var (
	// ErrNoSignalDetected indicates that no sample of a segment crossed the
	// high threshold. Detection cannot start without this landmark, so the
	// segment has to be skipped or re-run with other thresholds.
	ErrNoSignalDetected = errors.New("synchro: no sample exceeds the high threshold")

	// ErrInvalidPrecision indicates a detection precision outside (0, 1].
	ErrInvalidPrecision = errors.New("synchro: precision must be in (0, 1]")

	// ErrInvalidIncrement indicates an inter-frame increment too small to
	// advance the forward scan.
	ErrInvalidIncrement = errors.New("synchro: increment too small for the given precision")

	// ErrEmptySequence indicates that an input sequence is empty.
	ErrEmptySequence = errors.New("synchro: input sequence must be non-empty")

	// ErrInvalidBand indicates a band half-width below 1.
	ErrInvalidBand = errors.New("synchro: rowside must be at least 1")

	// ErrBandTooNarrow indicates that no path inside the band reaches a
	// usable end cell.
	ErrBandTooNarrow = errors.New("synchro: alignment band has no reachable end cell")

	// ErrLevelOutOfRange indicates a level with no row in the similarity matrix.
	ErrLevelOutOfRange = errors.New("synchro: level outside the similarity matrix")

	// ErrSignalsTooShort indicates a recorded sequence too short for the
	// requested operation.
	ErrSignalsTooShort = errors.New("synchro: recorded sequence too short")

	// ErrEditOutOfRange indicates an edit position that is not valid for the
	// array version it is applied to.
	ErrEditOutOfRange = errors.New("synchro: edit position out of range")

	// ErrTrimRange indicates trim bounds outside the arrays.
	ErrTrimRange = errors.New("synchro: invalid trim range")

	// ErrUnknownStrategy indicates an unrecognised correction strategy name.
	ErrUnknownStrategy = errors.New("synchro: unknown correction strategy")
)
