package interfaces

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

// DeviceID identifies a registered device. It is opaque to the engine and is
// only used as a store lookup key.
type DeviceID string

// String returns the raw identifier.
func (id DeviceID) String() string { return string(id) }

// MACAddr is a 6-byte hardware address used to bind derived keys to a
// specific device pair and direction.
type MACAddr [6]byte

// NewMACAddrFromBytes creates a MACAddr from a raw 6-byte slice.
func NewMACAddrFromBytes(source []byte) (MACAddr, error) {
	if len(source) != 6 {
		return MACAddr{}, errors.New("invalid MAC address: incorrect length")
	}
	var addr MACAddr
	copy(addr[:], source)
	return addr, nil
}

// NewMACAddrFromHex creates a MACAddr from a 12-character hex string.
func NewMACAddrFromHex(source string) (MACAddr, error) {
	raw, err := hex.DecodeString(source)
	if err != nil {
		return MACAddr{}, fmt.Errorf("invalid MAC address hex: %w", err)
	}
	return NewMACAddrFromBytes(raw)
}

// String returns hex representation.
func (a MACAddr) String() string { return hex.EncodeToString(a[:]) }

// Bytes returns the raw 6-byte address.
func (a MACAddr) Bytes() []byte { return a[:] }

// Nonce is the 16-byte per-exchange random value supplied by the caller.
type Nonce [16]byte

// NewNonceFromBytes creates a Nonce from a raw 16-byte slice.
func NewNonceFromBytes(source []byte) (Nonce, error) {
	if len(source) != 16 {
		return Nonce{}, errors.New("invalid nonce: incorrect length")
	}
	var n Nonce
	copy(n[:], source)
	return n, nil
}

// Bytes returns the raw 16-byte nonce.
func (n Nonce) Bytes() []byte { return n[:] }

// MeasurementSet is an M x D matrix of repeated feature samples for a single
// registration or authentication attempt. It is consumed once and never
// retained by the engine.
type MeasurementSet [][]float64

// Validate checks that the matrix is non-empty and rectangular with the
// expected number of rows.
func (ms MeasurementSet) Validate(expectedFrames int) error {
	if len(ms) != expectedFrames {
		return fmt.Errorf("%w: expected %d measurement frames, got %d", ErrInvalidInput, expectedFrames, len(ms))
	}
	if len(ms[0]) == 0 {
		return fmt.Errorf("%w: measurement frames have zero dimensions", ErrInvalidInput)
	}
	dims := len(ms[0])
	for i, frame := range ms {
		if len(frame) != dims {
			return fmt.Errorf("%w: frame %d has %d dimensions, expected %d", ErrInvalidInput, i, len(frame), dims)
		}
	}
	return nil
}

// Dims returns the feature dimensionality D, or zero for an empty set.
func (ms MeasurementSet) Dims() int {
	if len(ms) == 0 {
		return 0
	}
	return len(ms[0])
}

// ThresholdSource records which computation produced a pair of quantization
// thresholds. Only registration-time thresholds may feed the consistency
// digest; carrying the source in the type keeps an accidental swap from
// compiling into a silent digest mismatch.
type ThresholdSource uint8

const (
	// ThresholdsMeasured marks thresholds recomputed from a fresh measurement.
	ThresholdsMeasured ThresholdSource = iota
	// ThresholdsRegistered marks thresholds loaded from (or about to enter)
	// the per-device store at registration time.
	ThresholdsRegistered
)

// String returns the source name.
func (s ThresholdSource) String() string {
	switch s {
	case ThresholdsMeasured:
		return "measured"
	case ThresholdsRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// Thresholds holds the per-dimension quantization decision boundaries.
type Thresholds struct {
	Low    []float64
	High   []float64
	Source ThresholdSource
}

// AsRegistered returns a copy of the thresholds stamped as registration-time
// authoritative. The engine calls this exactly once, when persisting a new
// registration.
func (t Thresholds) AsRegistered() Thresholds {
	out := Thresholds{
		Low:    append([]float64(nil), t.Low...),
		High:   append([]float64(nil), t.High...),
		Source: ThresholdsRegistered,
	}
	return out
}

// LowBytes serializes the low threshold vector as little-endian IEEE-754.
func (t Thresholds) LowBytes() []byte { return floatsToBytes(t.Low) }

// HighBytes serializes the high threshold vector as little-endian IEEE-754.
func (t Thresholds) HighBytes() []byte { return floatsToBytes(t.High) }

func floatsToBytes(values []float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}

func bytesToFloats(data []byte) []float64 {
	out := make([]float64, len(data)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return out
}

// KeyMaterial is the full key chain produced by a register or authenticate
// call. It is never persisted; the caller owns its lifecycle.
type KeyMaterial struct {
	// S is the 32-byte stable secret recovered from the measurement.
	S [32]byte
	// L is the 32-byte per-exchange perturbation value.
	L [32]byte
	// K is the long-lived feature key bound to the device pair and epoch.
	K []byte
	// Ks is the short-lived session key derived from K.
	Ks []byte
	// Digest is the non-secret quantization-consistency tag.
	Digest []byte
}

// Context carries the per-exchange binding material supplied by the
// surrounding protocol. It is consumed per call and never persisted.
type Context struct {
	SrcID   MACAddr
	DstID   MACAddr
	Epoch   uint32
	Nonce   Nonce
	Counter uint32
	AlgID   string
	Version uint8
	CSIID   uint32
}

// contextFixedLen is the wire size of the fixed-width context fields:
// src(6) + dst(6) + epoch(4) + nonce(16) + seq(4) + algID length(1) +
// version(1) + csiID(4).
const contextFixedLen = 6 + 6 + 4 + 16 + 4 + 1 + 1 + 4

// MarshalBinary encodes the context in the fixed little-endian wire layout
// consumed from the surrounding protocol.
func (c *Context) MarshalBinary() ([]byte, error) {
	if len(c.AlgID) > 255 {
		return nil, fmt.Errorf("%w: algorithm id longer than 255 bytes", ErrInvalidInput)
	}
	buf := bytes.NewBuffer(make([]byte, 0, contextFixedLen+len(c.AlgID)))
	buf.Write(c.SrcID[:])
	buf.Write(c.DstID[:])
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], c.Epoch)
	buf.Write(u32[:])
	buf.Write(c.Nonce[:])
	binary.LittleEndian.PutUint32(u32[:], c.Counter)
	buf.Write(u32[:])
	buf.WriteByte(byte(len(c.AlgID)))
	buf.WriteString(c.AlgID)
	buf.WriteByte(c.Version)
	binary.LittleEndian.PutUint32(u32[:], c.CSIID)
	buf.Write(u32[:])
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a context from the wire layout.
func (c *Context) UnmarshalBinary(data []byte) error {
	if len(data) < contextFixedLen {
		return fmt.Errorf("%w: context too short: %d bytes", ErrInvalidInput, len(data))
	}
	off := 0
	copy(c.SrcID[:], data[off:off+6])
	off += 6
	copy(c.DstID[:], data[off:off+6])
	off += 6
	c.Epoch = binary.LittleEndian.Uint32(data[off:])
	off += 4
	copy(c.Nonce[:], data[off:off+16])
	off += 16
	c.Counter = binary.LittleEndian.Uint32(data[off:])
	off += 4
	algLen := int(data[off])
	off++
	if len(data) < contextFixedLen+algLen {
		return fmt.Errorf("%w: context truncated inside algorithm id", ErrInvalidInput)
	}
	c.AlgID = string(data[off : off+algLen])
	off += algLen
	c.Version = data[off]
	off++
	c.CSIID = binary.LittleEndian.Uint32(data[off:])
	return nil
}

// Domain returns the HKDF salt / domain-separation tag for this context.
func (c *Context) Domain() []byte { return []byte(c.AlgID) }

// deviceRecordVersion is the on-disk layout version of DeviceRecord.
const deviceRecordVersion = 1

// DeviceRecord is the only state that crosses calls: the public helper data
// and the registration-time thresholds for one device.
type DeviceRecord struct {
	HelperData []byte
	Thresholds Thresholds
}

// Clone returns a deep copy so store implementations can hand out snapshots.
func (r *DeviceRecord) Clone() *DeviceRecord {
	return &DeviceRecord{
		HelperData: append([]byte(nil), r.HelperData...),
		Thresholds: Thresholds{
			Low:    append([]float64(nil), r.Thresholds.Low...),
			High:   append([]float64(nil), r.Thresholds.High...),
			Source: r.Thresholds.Source,
		},
	}
}

// MarshalBinary encodes the record in the internal persistence layout:
// version(1) || D(u32) || helperLen(u32) || helper || thetaLow || thetaHigh,
// little-endian, thresholds as IEEE-754 float64 vectors.
func (r *DeviceRecord) MarshalBinary() ([]byte, error) {
	if len(r.Thresholds.Low) != len(r.Thresholds.High) {
		return nil, fmt.Errorf("%w: threshold vectors of unequal length", ErrInvalidInput)
	}
	dims := len(r.Thresholds.Low)
	buf := bytes.NewBuffer(make([]byte, 0, 9+len(r.HelperData)+16*dims))
	buf.WriteByte(deviceRecordVersion)
	var u32 [4]byte
	binary.LittleEndian.PutUint32(u32[:], uint32(dims))
	buf.Write(u32[:])
	binary.LittleEndian.PutUint32(u32[:], uint32(len(r.HelperData)))
	buf.Write(u32[:])
	buf.Write(r.HelperData)
	buf.Write(r.Thresholds.LowBytes())
	buf.Write(r.Thresholds.HighBytes())
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a record from the persistence layout. Thresholds
// loaded from a record are registration-time authoritative by definition.
func (r *DeviceRecord) UnmarshalBinary(data []byte) error {
	if len(data) < 9 {
		return fmt.Errorf("%w: device record too short", ErrInvalidInput)
	}
	if data[0] != deviceRecordVersion {
		return fmt.Errorf("%w: unsupported device record version %d", ErrInvalidInput, data[0])
	}
	dims := int(binary.LittleEndian.Uint32(data[1:]))
	helperLen := int(binary.LittleEndian.Uint32(data[5:]))
	expect := 9 + helperLen + 16*dims
	if len(data) != expect {
		return fmt.Errorf("%w: device record size %d, expected %d", ErrInvalidInput, len(data), expect)
	}
	off := 9
	r.HelperData = append([]byte(nil), data[off:off+helperLen]...)
	off += helperLen
	r.Thresholds.Low = bytesToFloats(data[off : off+8*dims])
	off += 8 * dims
	r.Thresholds.High = bytesToFloats(data[off : off+8*dims])
	r.Thresholds.Source = ThresholdsRegistered
	return nil
}
