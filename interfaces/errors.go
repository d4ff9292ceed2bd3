package interfaces

import "errors"

var (
	// ErrInvalidConfig is returned at construction time for configuration that
	// fails validation. Components reject it immediately and never partially
	// initialize.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput is returned for malformed per-call input such as a
	// non-rectangular measurement matrix or a wrong-length identifier. No
	// state is mutated.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownDevice is returned when authenticating a device that was
	// never registered.
	ErrUnknownDevice = errors.New("unknown device")

	// ErrAlreadyRegistered is returned when registering a device that already
	// has stored helper data. Engines built with overwrite enabled replace the
	// record instead.
	ErrAlreadyRegistered = errors.New("device already registered")

	// ErrRecoveryFailed is returned when the error-correcting code could not
	// correct enough bits. This is the expected outcome under high channel
	// noise, not a system fault.
	ErrRecoveryFailed = errors.New("bit recovery failed")

	// ErrThresholdSource is returned when measurement-time thresholds reach a
	// digest computation. Only registration-time thresholds are authoritative
	// for the consistency digest.
	ErrThresholdSource = errors.New("digest requires registration-time thresholds")

	// ErrStoreUnavailable is returned when a device store backend is not
	// accessible.
	ErrStoreUnavailable = errors.New("device store unavailable")
)
