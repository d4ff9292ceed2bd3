package extractor

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

func randomBits(rng *rand.Rand, n int) []uint8 {
	bits := make([]uint8, n)
	for i := range bits {
		bits[i] = uint8(rng.Intn(2))
	}
	return bits
}

func TestGenerateHelperSize(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	ext, err := New(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	helper, err := ext.Generate(randomBits(rng, cfg.TargetBits))
	require.NoError(t, err)
	assert.Len(t, helper, cfg.HelperBytes())
}

func TestRecoverCleanReplica(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	ext, err := New(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(2))
	bits := randomBits(rng, cfg.TargetBits)
	helper, err := ext.Generate(bits)
	require.NoError(t, err)

	result, err := ext.Recover(append([]uint8(nil), bits...), helper)
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.Equal(t, bits, result.Bits)
	for _, block := range result.Blocks {
		assert.True(t, block.OK)
		assert.Equal(t, 0, block.BitFlips)
	}
}

func TestRecoverWithinCapacity(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	ext, err := New(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(3))
	bits := randomBits(rng, cfg.TargetBits)
	helper, err := ext.Generate(bits)
	require.NoError(t, err)

	// Flip the full capacity in each block: BCHT errors among the first
	// BlockBits positions and BCHT among the rest.
	noisy := append([]uint8(nil), bits...)
	blockSize := cfg.BlockBits()
	for i := 0; i < cfg.BCHT; i++ {
		noisy[i*blockSize/cfg.BCHT] ^= 1
		noisy[blockSize+i*blockSize/cfg.BCHT] ^= 1
	}

	result, err := ext.Recover(noisy, helper)
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, bits, result.Bits)
	for _, block := range result.Blocks {
		assert.Equal(t, cfg.BCHT, block.BitFlips)
	}
}

func TestRecoverFailsBeyondCapacity(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	ext, err := New(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(4))
	bits := randomBits(rng, cfg.TargetBits)
	helper, err := ext.Generate(bits)
	require.NoError(t, err)

	// Concentrate 40 errors in the first block; the second stays clean.
	noisy := append([]uint8(nil), bits...)
	for i := 0; i < 40; i++ {
		noisy[i*3] ^= 1
	}

	result, err := ext.Recover(noisy, helper)
	require.NoError(t, err)
	assert.False(t, result.OK)
	assert.False(t, result.Blocks[0].OK)
	assert.True(t, result.Blocks[1].OK)
	assert.Len(t, result.Bits, cfg.TargetBits)
}

func TestSingleBlockConfig(t *testing.T) {
	cfg := interfaces.LowLatencyConfig()
	ext, err := New(cfg)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(5))
	bits := randomBits(rng, cfg.TargetBits)
	helper, err := ext.Generate(bits)
	require.NoError(t, err)
	assert.Len(t, helper, cfg.HelperBytes())

	noisy := append([]uint8(nil), bits...)
	noisy[0] ^= 1
	noisy[64] ^= 1
	noisy[127] ^= 1

	result, err := ext.Recover(noisy, helper)
	require.NoError(t, err)
	require.True(t, result.OK)
	assert.Equal(t, bits, result.Bits)
}

func TestGenerateRejectsWrongLength(t *testing.T) {
	ext, err := New(interfaces.DefaultConfig())
	require.NoError(t, err)

	_, err = ext.Generate(make([]uint8, 255))
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestRecoverRejectsWrongHelperLength(t *testing.T) {
	cfg := interfaces.DefaultConfig()
	ext, err := New(cfg)
	require.NoError(t, err)

	_, err = ext.Recover(make([]uint8, cfg.TargetBits), make([]byte, 10))
	require.ErrorIs(t, err, interfaces.ErrInvalidInput)
}

func TestPackUnpackBits(t *testing.T) {
	bits := []uint8{1, 0, 1, 1, 0, 0, 0, 1, 1, 1}
	packed := PackBits(bits)
	require.Len(t, packed, 2)
	assert.Equal(t, byte(0b10001101), packed[0])
	assert.Equal(t, byte(0b00000011), packed[1])
	assert.Equal(t, bits, UnpackBits(packed, len(bits)))
}
