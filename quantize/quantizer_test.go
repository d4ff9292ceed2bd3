package quantize

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

func newTestQuantizer(t *testing.T, cfg interfaces.Config) *Quantizer {
	t.Helper()
	q, err := New(cfg, sha256.Sum256)
	require.NoError(t, err)
	return q
}

// columns builds an MFrames x D measurement set from per-dimension sample
// vectors.
func columns(cols ...[]float64) interfaces.MeasurementSet {
	frames := len(cols[0])
	ms := make(interfaces.MeasurementSet, frames)
	for m := 0; m < frames; m++ {
		ms[m] = make([]float64, len(cols))
		for d, col := range cols {
			ms[m][d] = col[m]
		}
	}
	return ms
}

func TestNewRequiresHash(t *testing.T) {
	_, err := New(interfaces.DefaultConfig(), nil)
	require.ErrorIs(t, err, interfaces.ErrInvalidConfig)
}

func TestComputeThresholdsPercentile(t *testing.T) {
	q := newTestQuantizer(t, interfaces.DefaultConfig())

	th, err := q.ComputeThresholds(columns([]float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, err)
	assert.Equal(t, interfaces.ThresholdsMeasured, th.Source)
	// Linear interpolation at rank p*(M-1): 0.25*5 = 1.25 and 0.75*5 = 3.75.
	assert.InDelta(t, 2.25, th.Low[0], 1e-12)
	assert.InDelta(t, 4.75, th.High[0], 1e-12)
}

func TestComputeThresholdsFixed(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	cfg.QuantizeMethod = interfaces.QuantizeFixed
	q := newTestQuantizer(t, cfg)

	// Mean 3, population stddev sqrt(16/6).
	th, err := q.ComputeThresholds(columns([]float64{1, 1, 3, 3, 5, 5}))
	require.NoError(t, err)
	assert.InDelta(t, 3-0.5*1.632993161855452, th.Low[0], 1e-12)
	assert.InDelta(t, 3+0.5*1.632993161855452, th.High[0], 1e-12)
}

func TestQuantizeTernarySymbols(t *testing.T) {
	q := newTestQuantizer(t, interfaces.DefaultConfig())

	ms := columns([]float64{-5, 1, 2, 3, 4, 9})
	th := interfaces.Thresholds{Low: []float64{1}, High: []float64{4}}
	ternary, err := q.Quantize(ms, th)
	require.NoError(t, err)

	got := make([]int8, len(ms))
	for m := range ms {
		got[m] = ternary[m][0]
	}
	// Values equal to a threshold land in the erased band, never guessed.
	assert.Equal(t, []int8{0, Erased, Erased, Erased, Erased, 1}, got)
}

func TestVoteStrictMajority(t *testing.T) {
	q := newTestQuantizer(t, interfaces.DefaultConfig())

	// Columns: 4 ones, 4 zeros, a 3-3 tie, and 3 ones with erasures.
	ternary := [][]int8{
		{1, 0, 1, 1},
		{1, 0, 1, 1},
		{1, 0, 1, 1},
		{1, 0, 0, Erased},
		{0, 1, 0, Erased},
		{0, 1, 0, Erased},
	}

	bits, selected := q.Vote(ternary)
	assert.Equal(t, []uint8{1, 0}, bits)
	assert.Equal(t, []int{0, 1}, selected)
}

func TestExtractIsDeterministic(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	q := newTestQuantizer(t, cfg)

	ms := make(interfaces.MeasurementSet, cfg.MFrames)
	for m := range ms {
		ms[m] = make([]float64, 300)
		for d := range ms[m] {
			ms[m][d] = float64((m*31+d*17)%23) - 11.0
		}
	}

	first, err := q.Extract(ms)
	require.NoError(t, err)
	second, err := q.Extract(ms)
	require.NoError(t, err)

	assert.Equal(t, first.Bits, second.Bits)
	assert.Equal(t, first.Thresholds.Low, second.Thresholds.Low)
	assert.Equal(t, first.Thresholds.High, second.Thresholds.High)
	assert.Len(t, first.Bits, cfg.TargetBits)
	assert.Equal(t, cfg.TargetBits, first.VotedBits+first.StabilityFilledBits+first.PaddedBits)
}

func TestExtractPadsShortMeasurements(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	q := newTestQuantizer(t, cfg)

	dims := 100
	ms := make(interfaces.MeasurementSet, cfg.MFrames)
	for m := range ms {
		ms[m] = make([]float64, dims)
		for d := range ms[m] {
			ms[m][d] = float64((m + d) % 7)
		}
	}

	res, err := q.Extract(ms)
	require.NoError(t, err)
	assert.Len(t, res.Bits, cfg.TargetBits)
	assert.Equal(t, cfg.TargetBits-dims, res.PaddedBits)

	// A second quantizer instance produces the same pad stream.
	other := newTestQuantizer(t, cfg)
	otherRes, err := other.Extract(ms)
	require.NoError(t, err)
	assert.Equal(t, res.Bits, otherRes.Bits)
}

func TestExtractRejectsWrongFrameCount(t *testing.T) {
	q := newTestQuantizer(t, interfaces.DefaultConfig())

	ms := make(interfaces.MeasurementSet, 3)
	for m := range ms {
		ms[m] = []float64{1, 2, 3}
	}
	_, err := q.Extract(ms)
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestQuantizeRejectsThresholdMismatch(t *testing.T) {
	q := newTestQuantizer(t, interfaces.DefaultConfig())

	ms := columns([]float64{1, 2, 3, 4, 5, 6}, []float64{6, 5, 4, 3, 2, 1})
	th := interfaces.Thresholds{Low: []float64{1}, High: []float64{4}}
	_, err := q.Quantize(ms, th)
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}
