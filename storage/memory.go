package storage

import (
	"context"
	"sync"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// MemoryStore keeps device records in process memory. It is the default for
// tests and single-process deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[interfaces.DeviceID]*interfaces.DeviceRecord
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[interfaces.DeviceID]*interfaces.DeviceRecord)}
}

// Get returns a snapshot of the record for a device.
func (s *MemoryStore) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, interfaces.ErrUnknownDevice
	}
	return record.Clone(), nil
}

// Put stores a snapshot of the record for a device.
func (s *MemoryStore) Put(ctx context.Context, id interfaces.DeviceID, record *interfaces.DeviceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = record.Clone()
	return nil
}

// Has reports whether a record exists for a device.
func (s *MemoryStore) Has(ctx context.Context, id interfaces.DeviceID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[id]
	return ok, nil
}

// Delete removes the record for a device.
func (s *MemoryStore) Delete(ctx context.Context, id interfaces.DeviceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// Name returns an identifier for logging.
func (s *MemoryStore) Name() string { return "memory" }
