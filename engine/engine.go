// Package engine composes the quantizer, the fuzzy extractor and the key
// derivations into the two core operations, Register and Authenticate, over
// an injected per-device store. The engine holds no state of its own beyond
// per-device serialization; everything else is caller-supplied input or
// freshly computed output.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zhanglinchao1/Feature-Algorithm/extractor"
	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
	"github.com/zhanglinchao1/Feature-Algorithm/kdf"
	"github.com/zhanglinchao1/Feature-Algorithm/quantize"
)

// Option configures an Engine.
type Option func(*Engine)

// WithOverwrite lets Register replace an existing record instead of failing
// with ErrAlreadyRegistered.
func WithOverwrite() Option {
	return func(e *Engine) { e.allowOverwrite = true }
}

// Metadata reports how a registration's bitstring was assembled.
type Metadata struct {
	// VotedBits counts bits emitted by the strict majority vote.
	VotedBits int
	// StabilityFilledBits counts bits filled from stability-ranked unused
	// dimensions.
	StabilityFilledBits int
	// PaddedBits counts deterministic pad bits.
	PaddedBits int
	// HelperBytes is the stored helper data size.
	HelperBytes int
	// Thresholds are the stored registration-time thresholds.
	Thresholds interfaces.Thresholds
}

// Engine is the orchestrator. Safe for concurrent use; operations on
// different devices proceed fully in parallel, operations on the same device
// are serialized internally.
type Engine struct {
	cfg     interfaces.Config
	quant   *quantize.Quantizer
	ext     *extractor.Extractor
	deriver *kdf.Deriver
	store   interfaces.DeviceStore
	log     *slog.Logger

	allowOverwrite bool
	locks          sync.Map // interfaces.DeviceID -> *sync.Mutex
}

// New validates the configuration and builds the engine. Construction fails
// fast on invalid configuration; nothing is partially initialized.
func New(cfg interfaces.Config, store interfaces.DeviceStore, log *slog.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: engine requires a device store", interfaces.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}

	deriver, err := kdf.New(cfg)
	if err != nil {
		return nil, err
	}
	quant, err := quantize.New(cfg, deriver.Sum256)
	if err != nil {
		return nil, err
	}
	ext, err := extractor.New(cfg)
	if err != nil {
		return nil, err
	}

	return &Engine{
		cfg:     cfg,
		quant:   quant,
		ext:     ext,
		deriver: deriver,
		store:   store,
		log:     log,
	}, nil
}

// Config returns the engine's immutable configuration.
func (e *Engine) Config() interfaces.Config { return e.cfg }

// Register extracts a bitstring from the measurements, generates helper data
// for it, persists the per-device record and derives the key chain. The
// extracted string is used directly as the stable secret; no recovery step is
// needed at registration by construction.
func (e *Engine) Register(ctx context.Context, id interfaces.DeviceID, measurements interfaces.MeasurementSet, ectx interfaces.Context, mask []byte) (*interfaces.KeyMaterial, *Metadata, error) {
	if id == "" {
		return nil, nil, fmt.Errorf("%w: empty device id", interfaces.ErrInvalidInput)
	}

	unlock := e.lockDevice(id)
	defer unlock()

	if !e.allowOverwrite {
		exists, err := e.store.Has(ctx, id)
		if err != nil {
			return nil, nil, err
		}
		if exists {
			return nil, nil, fmt.Errorf("%w: %s", interfaces.ErrAlreadyRegistered, id)
		}
	}

	extracted, err := e.quant.Extract(measurements)
	if err != nil {
		return nil, nil, err
	}
	helper, err := e.ext.Generate(extracted.Bits)
	if err != nil {
		return nil, nil, err
	}

	stored := extracted.Thresholds.AsRegistered()
	record := &interfaces.DeviceRecord{HelperData: helper, Thresholds: stored}
	if err := e.store.Put(ctx, id, record); err != nil {
		return nil, nil, err
	}

	material, err := e.deriveKeys(stableSecret(extracted.Bits), ectx, mask, stored)
	if err != nil {
		return nil, nil, err
	}

	e.log.Debug("Device registered",
		"device", id.String(),
		"votedBits", extracted.VotedBits,
		"filledBits", extracted.StabilityFilledBits,
		"paddedBits", extracted.PaddedBits,
		"helperBytes", len(helper))

	meta := &Metadata{
		VotedBits:           extracted.VotedBits,
		StabilityFilledBits: extracted.StabilityFilledBits,
		PaddedBits:          extracted.PaddedBits,
		HelperBytes:         len(helper),
		Thresholds:          stored,
	}
	return material, meta, nil
}

// Authenticate extracts a noisy bitstring from fresh measurements, recovers
// the registration-time string through the stored helper data, and derives
// the key chain. The digest is computed from the stored thresholds, never the
// freshly measured ones, so two honest parties with matching configuration
// agree on it even though their raw measurements differ.
func (e *Engine) Authenticate(ctx context.Context, id interfaces.DeviceID, measurements interfaces.MeasurementSet, ectx interfaces.Context, mask []byte) (*interfaces.KeyMaterial, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: empty device id", interfaces.ErrInvalidInput)
	}

	record, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	extracted, err := e.quant.Extract(measurements)
	if err != nil {
		return nil, err
	}
	// The freshly computed thresholds are discarded here; only the stored
	// registration-time pair may reach the digest.

	recovered, err := e.ext.Recover(extracted.Bits, record.HelperData)
	if err != nil {
		return nil, err
	}
	if !recovered.OK {
		for j, block := range recovered.Blocks {
			if !block.OK {
				e.log.Debug("Block decode failed", "device", id.String(), "block", j)
			} else {
				e.log.Debug("Block decoded", "device", id.String(), "block", j, "bitFlips", block.BitFlips)
			}
		}
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRecoveryFailed, id)
	}

	return e.deriveKeys(stableSecret(recovered.Bits), ectx, mask, record.Thresholds)
}

// deriveKeys runs the full chain L -> K -> Ks plus the digest.
func (e *Engine) deriveKeys(s [32]byte, ectx interfaces.Context, mask []byte, th interfaces.Thresholds) (*interfaces.KeyMaterial, error) {
	l := e.deriver.ComputePerturbation(ectx.Epoch, ectx.Nonce)

	k, err := e.deriver.DeriveFeatureKey(s, l, ectx.Domain(), ectx.SrcID, ectx.DstID, ectx.Version, ectx.Epoch)
	if err != nil {
		return nil, err
	}
	ks, err := e.deriver.DeriveSessionKey(k, ectx.Epoch, ectx.Counter)
	if err != nil {
		return nil, err
	}
	digest, err := e.deriver.GenerateDigest(mask, th)
	if err != nil {
		return nil, err
	}

	return &interfaces.KeyMaterial{S: s, L: l, K: k, Ks: ks, Digest: digest}, nil
}

// lockDevice serializes mutation per device id.
func (e *Engine) lockDevice(id interfaces.DeviceID) func() {
	muAny, _ := e.locks.LoadOrStore(id, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// stableSecret packs the bitstring LSB-first and fits it into 32 bytes,
// zero padding or truncating as needed.
func stableSecret(bits []uint8) [32]byte {
	var s [32]byte
	copy(s[:], extractor.PackBits(bits))
	return s
}
