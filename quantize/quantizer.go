// Package quantize turns a matrix of repeated noisy measurements into a
// fixed-length bitstring. Each dimension is quantized into a ternary symbol
// against per-dimension thresholds, a strict majority vote across samples
// selects stable bits, and the string is padded to the target length
// deterministically.
package quantize

import (
	"fmt"
	"math"
	"sort"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// Erased marks a sample whose value fell between the thresholds and is
// excluded from voting.
const Erased int8 = -1

// HashFunc is the 256-bit hash primitive used for the deterministic pad
// stream. The engine wires in the configured algorithm.
type HashFunc func([]byte) [32]byte

// padSeedLabel seeds the deterministic pad stream. The stream depends only on
// this label and the bit index, so registration and authentication always
// agree on pad bits; those positions carry no measurement entropy but never
// consume correction budget.
const padSeedLabel = "feature-algorithm/pad/v1"

// Result is the output of a full extraction.
type Result struct {
	// Bits is the extracted bitstring, exactly TargetBits long.
	Bits []uint8
	// Thresholds are the decision boundaries computed from this measurement,
	// tagged as measurement-sourced.
	Thresholds interfaces.Thresholds
	// VotedBits counts bits produced by the strict majority vote.
	VotedBits int
	// StabilityFilledBits counts bits recovered from unused dimensions ranked
	// by measurement stability.
	StabilityFilledBits int
	// PaddedBits counts bits taken from the deterministic pad stream.
	PaddedBits int
}

// Quantizer extracts bitstrings from measurement sets. It is stateless apart
// from its immutable configuration and safe for concurrent use.
type Quantizer struct {
	cfg  interfaces.Config
	hash HashFunc
}

// New creates a quantizer. The configuration must already be validated.
func New(cfg interfaces.Config, hash HashFunc) (*Quantizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if hash == nil {
		return nil, fmt.Errorf("%w: quantizer requires a hash function", interfaces.ErrInvalidConfig)
	}
	return &Quantizer{cfg: cfg, hash: hash}, nil
}

// ComputeThresholds derives the per-dimension decision boundaries from the
// measurement matrix. Percentile mode interpolates the configured percentiles
// across the M samples of each dimension; fixed mode uses mean +/- 0.5 stddev.
// Both are deterministic given the same input.
func (q *Quantizer) ComputeThresholds(measurements interfaces.MeasurementSet) (interfaces.Thresholds, error) {
	if err := measurements.Validate(q.cfg.MFrames); err != nil {
		return interfaces.Thresholds{}, err
	}
	dims := measurements.Dims()
	th := interfaces.Thresholds{
		Low:    make([]float64, dims),
		High:   make([]float64, dims),
		Source: interfaces.ThresholdsMeasured,
	}

	column := make([]float64, len(measurements))
	for d := 0; d < dims; d++ {
		for m, frame := range measurements {
			column[m] = frame[d]
		}
		switch q.cfg.QuantizeMethod {
		case interfaces.QuantizePercentile:
			sorted := append([]float64(nil), column...)
			sort.Float64s(sorted)
			th.Low[d] = percentile(sorted, q.cfg.ThetaLowPct)
			th.High[d] = percentile(sorted, q.cfg.ThetaHighPct)
		case interfaces.QuantizeFixed:
			mean, std := meanStddev(column)
			th.Low[d] = mean - 0.5*std
			th.High[d] = mean + 0.5*std
		}
	}
	return th, nil
}

// Quantize maps every sample of every dimension to a ternary symbol:
// above the high threshold emits 1, below the low threshold emits 0, and the
// ambiguous band in between is erased rather than guessed.
func (q *Quantizer) Quantize(measurements interfaces.MeasurementSet, th interfaces.Thresholds) ([][]int8, error) {
	if err := measurements.Validate(q.cfg.MFrames); err != nil {
		return nil, err
	}
	if len(th.Low) != measurements.Dims() || len(th.High) != measurements.Dims() {
		return nil, fmt.Errorf("%w: threshold length %d does not match %d dimensions", interfaces.ErrInvalidInput, len(th.Low), measurements.Dims())
	}

	ternary := make([][]int8, len(measurements))
	for m, frame := range measurements {
		row := make([]int8, len(frame))
		for d, v := range frame {
			switch {
			case v > th.High[d]:
				row[d] = 1
			case v < th.Low[d]:
				row[d] = 0
			default:
				row[d] = Erased
			}
		}
		ternary[m] = row
	}
	return ternary, nil
}

// Vote applies the strict majority vote per dimension. A dimension emits a
// bit only when one symbol reaches the vote threshold among non-erased
// samples; ties and weak majorities drop the dimension entirely. Output
// follows dimension index order.
func (q *Quantizer) Vote(ternary [][]int8) (bits []uint8, selected []int) {
	if len(ternary) == 0 {
		return nil, nil
	}
	dims := len(ternary[0])
	for d := 0; d < dims; d++ {
		ones, zeros := 0, 0
		for m := range ternary {
			switch ternary[m][d] {
			case 1:
				ones++
			case 0:
				zeros++
			}
		}
		switch {
		case ones >= q.cfg.VoteThreshold:
			bits = append(bits, 1)
			selected = append(selected, d)
		case zeros >= q.cfg.VoteThreshold:
			bits = append(bits, 0)
			selected = append(selected, d)
		}
	}
	return bits, selected
}

// Extract runs the full pipeline: thresholds, ternary quantization, majority
// vote, then padding to TargetBits. Padding first drains unused dimensions in
// decreasing measurement stability (inverse stddev), deciding each by simple
// majority of non-erased votes; any remaining gap comes from the
// deterministic pad stream.
func (q *Quantizer) Extract(measurements interfaces.MeasurementSet) (*Result, error) {
	th, err := q.ComputeThresholds(measurements)
	if err != nil {
		return nil, err
	}
	ternary, err := q.Quantize(measurements, th)
	if err != nil {
		return nil, err
	}
	bits, selected := q.Vote(ternary)

	res := &Result{Thresholds: th, VotedBits: len(bits)}
	if len(bits) > q.cfg.TargetBits {
		res.VotedBits = q.cfg.TargetBits
		res.Bits = bits[:q.cfg.TargetBits]
		return res, nil
	}

	bits = q.fillFromUnusedDims(bits, selected, measurements, ternary, &res.StabilityFilledBits)
	if len(bits) < q.cfg.TargetBits {
		res.PaddedBits = q.cfg.TargetBits - len(bits)
		bits = append(bits, q.padStream(len(bits), res.PaddedBits)...)
	}
	res.Bits = bits
	return res, nil
}

// fillFromUnusedDims appends bits from dimensions the vote dropped, most
// stable first. Stability is the inverse of the per-dimension stddev across
// samples.
func (q *Quantizer) fillFromUnusedDims(bits []uint8, selected []int, measurements interfaces.MeasurementSet, ternary [][]int8, filled *int) []uint8 {
	if len(bits) >= q.cfg.TargetBits {
		return bits
	}
	used := make(map[int]bool, len(selected))
	for _, d := range selected {
		used[d] = true
	}

	type candidate struct {
		dim       int
		stability float64
	}
	var candidates []candidate
	column := make([]float64, len(measurements))
	for d := 0; d < measurements.Dims(); d++ {
		if used[d] {
			continue
		}
		for m, frame := range measurements {
			column[m] = frame[d]
		}
		_, std := meanStddev(column)
		candidates = append(candidates, candidate{dim: d, stability: 1.0 / (std + 1e-8)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].stability > candidates[j].stability
	})

	for _, cand := range candidates {
		if len(bits) >= q.cfg.TargetBits {
			break
		}
		ones, zeros := 0, 0
		for m := range ternary {
			switch ternary[m][cand.dim] {
			case 1:
				ones++
			case 0:
				zeros++
			}
		}
		var bit uint8
		if ones >= zeros {
			bit = 1
		}
		bits = append(bits, bit)
		*filled++
	}
	return bits
}

// padStream produces count deterministic bits starting at the given offset.
func (q *Quantizer) padStream(offset, count int) []uint8 {
	out := make([]uint8, 0, count)
	var block [32]byte
	for len(out) < count {
		idx := offset + len(out)
		seed := make([]byte, 0, len(padSeedLabel)+4)
		seed = append(seed, padSeedLabel...)
		seed = append(seed, byte(idx>>24), byte(idx>>16), byte(idx>>8), byte(idx))
		block = q.hash(seed)
		for _, b := range block {
			for i := 0; i < 8 && len(out) < count; i++ {
				out = append(out, (b>>i)&1)
			}
		}
	}
	return out
}

// percentile interpolates linearly at rank p*(len-1) over sorted values.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// meanStddev returns the mean and population standard deviation.
func meanStddev(values []float64) (float64, float64) {
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return mean, math.Sqrt(variance)
}
