package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

func testRecord() *interfaces.DeviceRecord {
	return &interfaces.DeviceRecord{
		HelperData: []byte{0x01, 0x02, 0x03, 0x04},
		Thresholds: interfaces.Thresholds{
			Low:    []float64{-1.0, 0.5},
			High:   []float64{1.0, 2.5},
			Source: interfaces.ThresholdsRegistered,
		},
	}
}

func runStoreSuite(t *testing.T, store interfaces.DeviceStore) {
	t.Helper()
	ctx := context.Background()
	id := interfaces.DeviceID("device-1")

	exists, err := store.Has(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Get(ctx, id)
	require.ErrorIs(t, err, interfaces.ErrUnknownDevice)

	require.NoError(t, store.Put(ctx, id, testRecord()))

	exists, err = store.Has(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testRecord().HelperData, got.HelperData)
	assert.Equal(t, testRecord().Thresholds.Low, got.Thresholds.Low)
	assert.Equal(t, testRecord().Thresholds.High, got.Thresholds.High)
	assert.Equal(t, interfaces.ThresholdsRegistered, got.Thresholds.Source)

	require.NoError(t, store.Delete(ctx, id))
	exists, err = store.Has(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting an absent record is not an error.
	require.NoError(t, store.Delete(ctx, id))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	assert.Equal(t, "memory", store.Name())
	runStoreSuite(t, store)
}

func TestMemoryStoreHandsOutSnapshots(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := interfaces.DeviceID("device-2")

	original := testRecord()
	require.NoError(t, store.Put(ctx, id, original))

	// Mutating the put record or a returned record must not leak into the
	// stored state.
	original.HelperData[0] = 0xff
	got, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), got.HelperData[0])

	got.Thresholds.Low[0] = 99
	again, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, -1.0, again.Thresholds.Low[0])
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), slog.Default())
	require.NoError(t, err)
	runStoreSuite(t, store)
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	id := interfaces.DeviceID("device-3")

	first, err := NewFileStore(dir, slog.Default())
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, id, testRecord()))

	second, err := NewFileStore(dir, slog.Default())
	require.NoError(t, err)
	got, err := second.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, testRecord().HelperData, got.HelperData)
}

func TestNewStoreFromURI(t *testing.T) {
	log := slog.Default()

	store, err := NewStoreFromURI("memory://", log)
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	store, err = NewStoreFromURI("file://"+t.TempDir(), log)
	require.NoError(t, err)
	runStoreSuite(t, store)

	_, err = NewStoreFromURI("s3://", log)
	require.ErrorIs(t, err, interfaces.ErrInvalidConfig)

	_, err = NewStoreFromURI("vault://", log)
	require.ErrorIs(t, err, interfaces.ErrInvalidConfig)

	_, err = NewStoreFromURI("redis://localhost", log)
	require.ErrorIs(t, err, interfaces.ErrInvalidConfig)
}
