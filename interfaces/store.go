package interfaces

import "context"

// DeviceStore persists the per-device (helper data, thresholds) pair. It is
// the only state that crosses register/authenticate calls; injecting it keeps
// the engine free of hidden globals and trivially testable with the in-memory
// implementation.
//
// Implementations must return ErrUnknownDevice from Get for absent devices
// and must hand out snapshots: a record returned by Get is never aliased to
// stored state.
type DeviceStore interface {
	// Get retrieves the record for a device.
	Get(ctx context.Context, id DeviceID) (*DeviceRecord, error)

	// Put stores or replaces the record for a device.
	Put(ctx context.Context, id DeviceID, record *DeviceRecord) error

	// Has reports whether a record exists for a device.
	Has(ctx context.Context, id DeviceID) (bool, error)

	// Delete removes the record for a device. Deleting an absent device is
	// not an error.
	Delete(ctx context.Context, id DeviceID) error

	// Name returns an identifier for logging.
	Name() string
}
