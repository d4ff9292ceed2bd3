package interfaces

import (
	"fmt"
	"math/bits"
)

// QuantizeMethod selects how per-dimension thresholds are computed.
type QuantizeMethod uint8

const (
	// QuantizePercentile uses per-dimension percentiles across the M samples.
	QuantizePercentile QuantizeMethod = iota
	// QuantizeFixed uses mean +/- 0.5 stddev per dimension.
	QuantizeFixed
)

// String returns the method name.
func (m QuantizeMethod) String() string {
	switch m {
	case QuantizePercentile:
		return "percentile"
	case QuantizeFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// HashAlgorithm selects the hash primitive for the perturbation value, the
// consistency digest and the deterministic pad stream. It is a closed set
// resolved once at construction; HKDF key derivation always uses SHA-256
// regardless of this setting.
type HashAlgorithm uint8

const (
	// HashBLAKE3 selects BLAKE3-256.
	HashBLAKE3 HashAlgorithm = iota
	// HashSHA256 selects SHA-256.
	HashSHA256
)

// String returns the algorithm name.
func (h HashAlgorithm) String() string {
	switch h {
	case HashBLAKE3:
		return "blake3"
	case HashSHA256:
		return "sha256"
	default:
		return "unknown"
	}
}

// ParseHashAlgorithm maps a configuration string to the closed algorithm set.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch name {
	case "blake3":
		return HashBLAKE3, nil
	case "sha256":
		return HashSHA256, nil
	default:
		return 0, fmt.Errorf("%w: unknown hash algorithm %q", ErrInvalidConfig, name)
	}
}

// Config holds every tunable of the key derivation core. It is validated at
// construction time and immutable thereafter.
type Config struct {
	// MFrames is the number of repeated measurement samples per attempt.
	MFrames int
	// VoteThreshold is the strict-majority count a dimension needs to emit a
	// bit. Must lie in (MFrames/2, MFrames].
	VoteThreshold int
	// TargetBits is the fixed bitstring length; blocks, helper-data geometry
	// and the code are sized off it.
	TargetBits int

	// QuantizeMethod selects threshold computation.
	QuantizeMethod QuantizeMethod
	// ThetaLowPct and ThetaHighPct are the percentile thresholds for the
	// percentile method.
	ThetaLowPct  float64
	ThetaHighPct float64

	// BCHN, BCHK and BCHT describe the per-block error-correcting code:
	// codeword length, message length and correction capacity. The triple
	// must describe a real binary BCH code over the configured field.
	BCHN int
	BCHK int
	BCHT int
	// BCHBlocks is the number of code blocks the bitstring splits into.
	BCHBlocks int
	// BCHPoly is the primitive polynomial defining the field, with the top
	// bit set (degree m for a length 2^m-1 code).
	BCHPoly int

	// HashAlgorithm selects the digest/perturbation hash primitive.
	HashAlgorithm HashAlgorithm
	// KeyLength is the derived key length in bytes: 16, 24, 32, 48 or 64.
	KeyLength int
	// DigestLength is the consistency digest length in bytes.
	DigestLength int

	// Version is the algorithm version bound into derived keys and digests.
	Version uint8
	// AlgorithmID is the quantization algorithm identifier bound into the
	// digest.
	AlgorithmID uint8
}

// DefaultConfig returns the default parameter set: 6 frames, strict 4-vote
// majority, a 256-bit string split over two BCH(255,131,18) blocks, BLAKE3
// digests and 32-byte keys.
func DefaultConfig() Config {
	return Config{
		MFrames:        6,
		VoteThreshold:  4,
		TargetBits:     256,
		QuantizeMethod: QuantizePercentile,
		ThetaLowPct:    0.25,
		ThetaHighPct:   0.75,
		BCHN:           255,
		BCHK:           131,
		BCHT:           18,
		BCHBlocks:      2,
		BCHPoly:        0x187,
		HashAlgorithm:  HashBLAKE3,
		KeyLength:      32,
		DigestLength:   8,
		Version:        1,
		AlgorithmID:    1,
	}
}

// HighNoiseConfig trades latency for correction strength: more frames, a
// stricter vote and a stronger BCH(255,99,23) code over three blocks.
func HighNoiseConfig() Config {
	cfg := DefaultConfig()
	cfg.MFrames = 8
	cfg.VoteThreshold = 6
	cfg.BCHK = 99
	cfg.BCHT = 23
	cfg.BCHBlocks = 3
	return cfg
}

// LowLatencyConfig shortens the bitstring to a single code block with the
// minimum frame count.
func LowLatencyConfig() Config {
	cfg := DefaultConfig()
	cfg.MFrames = 4
	cfg.VoteThreshold = 3
	cfg.TargetBits = 128
	cfg.BCHBlocks = 1
	return cfg
}

// HighSecurityConfig doubles the bitstring and key length.
func HighSecurityConfig() Config {
	cfg := DefaultConfig()
	cfg.TargetBits = 512
	cfg.BCHBlocks = 4
	cfg.KeyLength = 64
	return cfg
}

// Validate checks every parameter and reports the first violation. Invalid
// configuration fails at startup, not at first use.
func (c Config) Validate() error {
	if c.MFrames < 4 {
		return fmt.Errorf("%w: MFrames must be >= 4, got %d", ErrInvalidConfig, c.MFrames)
	}
	if c.MFrames > 10 {
		return fmt.Errorf("%w: MFrames must be <= 10, got %d", ErrInvalidConfig, c.MFrames)
	}
	if c.VoteThreshold <= c.MFrames/2 {
		return fmt.Errorf("%w: VoteThreshold must be > MFrames/2, got %d for %d frames", ErrInvalidConfig, c.VoteThreshold, c.MFrames)
	}
	if c.VoteThreshold > c.MFrames {
		return fmt.Errorf("%w: VoteThreshold cannot exceed MFrames, got %d for %d frames", ErrInvalidConfig, c.VoteThreshold, c.MFrames)
	}
	if c.TargetBits < 128 {
		return fmt.Errorf("%w: TargetBits must be >= 128, got %d", ErrInvalidConfig, c.TargetBits)
	}
	if c.TargetBits%8 != 0 {
		return fmt.Errorf("%w: TargetBits must be a multiple of 8, got %d", ErrInvalidConfig, c.TargetBits)
	}
	if c.BCHT < 1 {
		return fmt.Errorf("%w: BCHT must be positive, got %d", ErrInvalidConfig, c.BCHT)
	}
	if c.BCHK >= c.BCHN {
		return fmt.Errorf("%w: BCHK must be < BCHN, got K=%d N=%d", ErrInvalidConfig, c.BCHK, c.BCHN)
	}
	if c.BCHBlocks < 1 {
		return fmt.Errorf("%w: BCHBlocks must be positive, got %d", ErrInvalidConfig, c.BCHBlocks)
	}
	if c.BCHBlocks*c.BCHK < c.TargetBits {
		return fmt.Errorf("%w: BCHBlocks*BCHK must cover TargetBits, got %d*%d < %d", ErrInvalidConfig, c.BCHBlocks, c.BCHK, c.TargetBits)
	}
	if c.BlockBits() > c.BCHK {
		return fmt.Errorf("%w: block size %d exceeds BCHK=%d", ErrInvalidConfig, c.BlockBits(), c.BCHK)
	}
	m := bits.Len(uint(c.BCHPoly)) - 1
	if m < 3 || c.BCHN != (1<<m)-1 {
		return fmt.Errorf("%w: BCHN must be 2^m-1 for the degree-%d field polynomial, got %d", ErrInvalidConfig, m, c.BCHN)
	}
	switch c.KeyLength {
	case 16, 24, 32, 48, 64:
	default:
		return fmt.Errorf("%w: KeyLength must be one of 16/24/32/48/64, got %d", ErrInvalidConfig, c.KeyLength)
	}
	if c.DigestLength < 4 || c.DigestLength > 32 {
		return fmt.Errorf("%w: DigestLength must be in [4,32], got %d", ErrInvalidConfig, c.DigestLength)
	}
	if c.QuantizeMethod == QuantizePercentile {
		if !(c.ThetaLowPct > 0 && c.ThetaLowPct < 0.5) {
			return fmt.Errorf("%w: ThetaLowPct must be in (0, 0.5), got %v", ErrInvalidConfig, c.ThetaLowPct)
		}
		if !(c.ThetaHighPct > 0.5 && c.ThetaHighPct < 1.0) {
			return fmt.Errorf("%w: ThetaHighPct must be in (0.5, 1.0), got %v", ErrInvalidConfig, c.ThetaHighPct)
		}
	}
	switch c.QuantizeMethod {
	case QuantizePercentile, QuantizeFixed:
	default:
		return fmt.Errorf("%w: unknown quantize method %d", ErrInvalidConfig, c.QuantizeMethod)
	}
	switch c.HashAlgorithm {
	case HashBLAKE3, HashSHA256:
	default:
		return fmt.Errorf("%w: unknown hash algorithm %d", ErrInvalidConfig, c.HashAlgorithm)
	}
	return nil
}

// BlockBits returns the number of message bits carried per full code block;
// the final block may be shorter and is zero-padded by the extractor.
func (c Config) BlockBits() int { return (c.TargetBits + c.BCHBlocks - 1) / c.BCHBlocks }

// HelperBytes returns the helper data size: BCHBlocks * ceil(BCHN/8).
func (c Config) HelperBytes() int { return c.BCHBlocks * ((c.BCHN + 7) / 8) }
