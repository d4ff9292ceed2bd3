// Package kdf derives the context-bound key chain from a recovered stable
// secret: the per-exchange perturbation L, the feature key K, the session key
// Ks, and the quantization-consistency digest. Every derivation is a pure
// function of its inputs; two honest parties with identical inputs always
// produce identical bytes.
//
// K and Ks use HKDF over SHA-256 regardless of the configured hash variant;
// the variant only selects the primitive for L, the digest and the pad
// stream.
package kdf

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"lukechampine.com/blake3"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// sessionKeyLabel is the fixed info prefix of the session key expansion.
const sessionKeyLabel = "SessionKey"

// Deriver performs the key chain derivations. The hash variant is resolved
// once at construction into a function value; nothing is re-checked per call.
type Deriver struct {
	cfg  interfaces.Config
	hash func([]byte) [32]byte
}

// New creates a deriver for a validated configuration.
func New(cfg interfaces.Config) (*Deriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Deriver{cfg: cfg}
	switch cfg.HashAlgorithm {
	case interfaces.HashBLAKE3:
		d.hash = blake3.Sum256
	case interfaces.HashSHA256:
		d.hash = sha256.Sum256
	}
	return d, nil
}

// Sum256 exposes the resolved hash primitive so other components (the
// quantizer's pad stream) stay on the same variant.
func (d *Deriver) Sum256(data []byte) [32]byte { return d.hash(data) }

// ComputePerturbation derives the 32-byte random perturbation value
// L = Trunc256(H(epoch || nonce)). Its only job is to make K depend on the
// specific exchange even when the stable secret repeats.
func (d *Deriver) ComputePerturbation(epoch uint32, nonce interfaces.Nonce) [32]byte {
	data := make([]byte, 0, 4+len(nonce))
	data = binary.LittleEndian.AppendUint32(data, epoch)
	data = append(data, nonce[:]...)
	return d.hash(data)
}

// DeriveFeatureKey derives the feature key K via HKDF extract-then-expand:
// PRK = Extract(salt=domain, IKM=S||L), K = Expand(PRK, info=version || src ||
// dst || epoch). The info binding makes reuse of S across device pairs,
// directions, versions or epochs yield unrelated keys.
func (d *Deriver) DeriveFeatureKey(s, l [32]byte, domain []byte, src, dst interfaces.MACAddr, version uint8, epoch uint32) ([]byte, error) {
	ikm := make([]byte, 0, 64)
	ikm = append(ikm, s[:]...)
	ikm = append(ikm, l[:]...)
	prk := hkdf.Extract(sha256.New, ikm, domain)

	info := make([]byte, 0, 1+6+6+4)
	info = append(info, version)
	info = append(info, src[:]...)
	info = append(info, dst[:]...)
	info = binary.LittleEndian.AppendUint32(info, epoch)

	key := make([]byte, d.cfg.KeyLength)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, prk, info), key); err != nil {
		return nil, fmt.Errorf("feature key expansion failed: %w", err)
	}
	return key, nil
}

// DeriveSessionKey derives the short-lived session key Ks from K with a
// single expand step, info = "SessionKey" || epoch || counter. Cheap
// re-keying within the feature key's lifetime.
func (d *Deriver) DeriveSessionKey(k []byte, epoch, counter uint32) ([]byte, error) {
	if len(k) != d.cfg.KeyLength {
		return nil, fmt.Errorf("%w: feature key length %d, expected %d", interfaces.ErrInvalidInput, len(k), d.cfg.KeyLength)
	}
	info := make([]byte, 0, len(sessionKeyLabel)+8)
	info = append(info, sessionKeyLabel...)
	info = binary.LittleEndian.AppendUint32(info, epoch)
	info = binary.LittleEndian.AppendUint32(info, counter)

	ks := make([]byte, d.cfg.KeyLength)
	if _, err := io.ReadFull(hkdf.Expand(sha256.New, k, info), ks); err != nil {
		return nil, fmt.Errorf("session key expansion failed: %w", err)
	}
	return ks, nil
}

// GenerateDigest computes the truncated consistency digest over the
// quantization parameters: H(mask || thetaLow || thetaHigh || algID ||
// version). The digest is not a secret; it lets the two sides detect
// configuration drift independently of whether the measurement-derived
// secret matches. Only registration-time thresholds are accepted.
func (d *Deriver) GenerateDigest(mask []byte, th interfaces.Thresholds) ([]byte, error) {
	if th.Source != interfaces.ThresholdsRegistered {
		return nil, interfaces.ErrThresholdSource
	}
	low := th.LowBytes()
	high := th.HighBytes()
	data := make([]byte, 0, len(mask)+len(low)+len(high)+2)
	data = append(data, mask...)
	data = append(data, low...)
	data = append(data, high...)
	data = append(data, d.cfg.AlgorithmID, d.cfg.Version)

	sum := d.hash(data)
	return sum[:d.cfg.DigestLength], nil
}
