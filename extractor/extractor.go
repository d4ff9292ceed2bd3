// Package extractor implements the code-offset fuzzy extractor: public helper
// data is a codeword XORed with the secret bitstring, so a later noisy replica
// of the string can be corrected back to the original as long as the
// disagreement stays within the code's capacity.
package extractor

import (
	"fmt"

	"github.com/zhanglinchao1/Feature-Algorithm/bch"
	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// BlockOutcome reports the decode result for one code block. Callers may log
// where error density concentrated, but must not trust partial results as an
// authentication outcome.
type BlockOutcome struct {
	// BitFlips is the number of corrections applied, or bch.DecodeFailed.
	BitFlips int
	// OK reports whether the block decoded within capacity.
	OK bool
}

// RecoverResult is the outcome of a recovery attempt.
type RecoverResult struct {
	// Bits is the recovered bitstring, TargetBits long. On failure it still
	// carries the per-block best effort.
	Bits []uint8
	// OK is true only when every block decoded successfully.
	OK bool
	// Blocks holds the per-block outcomes.
	Blocks []BlockOutcome
}

// Extractor splits the bitstring into code blocks and applies the code-offset
// construction per block. Immutable after construction, safe for concurrent
// use.
type Extractor struct {
	cfg   interfaces.Config
	codec *bch.Codec
}

// New creates an extractor; the BCH parameters are validated by the codec
// construction.
func New(cfg interfaces.Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := bch.New(cfg.BCHN, cfg.BCHK, cfg.BCHT, cfg.BCHPoly)
	if err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg, codec: codec}, nil
}

// Generate produces helper data for a bitstring of exactly TargetBits. Per
// block, the zero-padded message is encoded and the codeword XORed with the
// padded message; the packed XOR masks concatenate into an opaque public
// blob of BCHBlocks * ceil(BCHN/8) bytes.
func (e *Extractor) Generate(bits []uint8) ([]byte, error) {
	if len(bits) != e.cfg.TargetBits {
		return nil, fmt.Errorf("%w: bitstring length %d, expected %d", interfaces.ErrInvalidInput, len(bits), e.cfg.TargetBits)
	}

	helperBlockBytes := (e.cfg.BCHN + 7) / 8
	helper := make([]byte, 0, e.cfg.BCHBlocks*helperBlockBytes)
	for j := 0; j < e.cfg.BCHBlocks; j++ {
		block := e.blockBits(bits, j)

		msg := make([]uint8, e.cfg.BCHK)
		copy(msg, block)
		codeword, err := e.codec.Encode(msg)
		if err != nil {
			return nil, err
		}

		// helper = codeword XOR (block zero-extended to N bits)
		for i, b := range block {
			codeword[i] ^= b
		}
		helper = append(helper, PackBits(codeword)...)
	}
	return helper, nil
}

// Recover reconstructs the original bitstring from a noisy replica and stored
// helper data. Success is per-block; the overall recovery succeeds only when
// every block decodes, but the concatenated best-effort bits are always
// returned.
func (e *Extractor) Recover(bits []uint8, helper []byte) (*RecoverResult, error) {
	if len(bits) != e.cfg.TargetBits {
		return nil, fmt.Errorf("%w: bitstring length %d, expected %d", interfaces.ErrInvalidInput, len(bits), e.cfg.TargetBits)
	}
	helperBlockBytes := (e.cfg.BCHN + 7) / 8
	if len(helper) != e.cfg.BCHBlocks*helperBlockBytes {
		return nil, fmt.Errorf("%w: helper data length %d, expected %d", interfaces.ErrInvalidInput, len(helper), e.cfg.BCHBlocks*helperBlockBytes)
	}

	result := &RecoverResult{
		Bits:   make([]uint8, 0, e.cfg.TargetBits),
		OK:     true,
		Blocks: make([]BlockOutcome, e.cfg.BCHBlocks),
	}
	for j := 0; j < e.cfg.BCHBlocks; j++ {
		block := e.blockBits(bits, j)
		helperBits := UnpackBits(helper[j*helperBlockBytes:(j+1)*helperBlockBytes], e.cfg.BCHN)

		// noisy codeword = helper XOR (block zero-extended to N bits)
		noisy := make([]uint8, e.cfg.BCHN)
		copy(noisy, helperBits)
		for i, b := range block {
			noisy[i] ^= b
		}

		flips, err := e.codec.Decode(noisy)
		if err != nil {
			return nil, err
		}
		result.Blocks[j] = BlockOutcome{BitFlips: flips, OK: flips != bch.DecodeFailed}
		if flips == bch.DecodeFailed {
			result.OK = false
		}
		result.Bits = append(result.Bits, noisy[:len(block)]...)
	}
	result.Bits = result.Bits[:e.cfg.TargetBits]
	return result, nil
}

// blockBits returns the message bits of block j; the final block may be
// shorter than BlockBits.
func (e *Extractor) blockBits(bits []uint8, j int) []uint8 {
	blockSize := e.cfg.BlockBits()
	start := j * blockSize
	if start > e.cfg.TargetBits {
		start = e.cfg.TargetBits
	}
	end := start + blockSize
	if end > e.cfg.TargetBits {
		end = e.cfg.TargetBits
	}
	return bits[start:end]
}
