package interfaces

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfilesValidate(t *testing.T) {
	for name, cfg := range map[string]Config{
		"default":       DefaultConfig(),
		"high-noise":    HighNoiseConfig(),
		"low-latency":   LowLatencyConfig(),
		"high-security": HighSecurityConfig(),
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, cfg.Validate())
		})
	}
}

func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"too few frames", func(c *Config) { c.MFrames = 3 }},
		{"too many frames", func(c *Config) { c.MFrames = 11 }},
		{"weak vote threshold", func(c *Config) { c.VoteThreshold = 3 }},
		{"vote threshold above frames", func(c *Config) { c.VoteThreshold = 7 }},
		{"target bits too short", func(c *Config) { c.TargetBits = 64 }},
		{"target bits unaligned", func(c *Config) { c.TargetBits = 250 }},
		{"blocks cannot cover target", func(c *Config) { c.BCHBlocks = 1 }},
		{"message exceeds codeword", func(c *Config) { c.BCHK = 255 }},
		{"zero capacity", func(c *Config) { c.BCHT = 0 }},
		{"field length mismatch", func(c *Config) { c.BCHN = 253 }},
		{"bad key length", func(c *Config) { c.KeyLength = 20 }},
		{"digest too short", func(c *Config) { c.DigestLength = 2 }},
		{"low percentile out of range", func(c *Config) { c.ThetaLowPct = 0.6 }},
		{"high percentile out of range", func(c *Config) { c.ThetaHighPct = 0.4 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestBlockGeometry(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 128, cfg.BlockBits())
	assert.Equal(t, 64, cfg.HelperBytes())

	highNoise := HighNoiseConfig()
	assert.Equal(t, 86, highNoise.BlockBits())
	assert.Equal(t, 96, highNoise.HelperBytes())
}

func TestParseHashAlgorithm(t *testing.T) {
	alg, err := ParseHashAlgorithm("blake3")
	require.NoError(t, err)
	assert.Equal(t, HashBLAKE3, alg)

	alg, err = ParseHashAlgorithm("sha256")
	require.NoError(t, err)
	assert.Equal(t, HashSHA256, alg)

	_, err = ParseHashAlgorithm("md5")
	require.ErrorIs(t, err, ErrInvalidConfig)
}
