// Package storage provides DeviceStore backends for the per-device helper
// data and registration thresholds: in-process memory, local file system,
// Amazon S3 and HashiCorp Vault, selected by URI through NewStoreFromURI.
// All backends serialize records with the fixed binary layout defined by
// interfaces.DeviceRecord and hand out snapshots, never aliases.
package storage
