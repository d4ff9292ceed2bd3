// Package interfaces defines the shared types, configuration and error
// taxonomy of the feature key derivation core: device identifiers, the
// per-exchange context and its wire codec, quantization thresholds with their
// provenance tag, the persisted device record, and the DeviceStore contract
// implemented by the storage backends.
package interfaces
