package storage

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// FileStore persists device records on the local file system, one file per
// device under a single directory. File names are the SHA-256 of the device
// id so arbitrary identifiers stay path-safe.
type FileStore struct {
	baseDir string
	log     *slog.Logger
}

// NewFileStore creates a file store rooted at baseDir, creating the
// directory if needed.
func NewFileStore(baseDir string, log *slog.Logger) (*FileStore, error) {
	devicesDir := filepath.Join(baseDir, "devices")
	if err := os.MkdirAll(devicesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create devices directory: %w", err)
	}
	return &FileStore{baseDir: baseDir, log: log}, nil
}

// Get reads and decodes the record for a device. Returns ErrUnknownDevice if
// no file exists.
func (s *FileStore) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceRecord, error) {
	path := s.recordPath(id)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, interfaces.ErrUnknownDevice
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read device record: %w", err)
	}

	record := &interfaces.DeviceRecord{}
	if err := record.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode device record: %w", err)
	}

	s.log.Debug("Loaded device record", slog.String("path", path), slog.Int("size", len(data)))
	return record, nil
}

// Put encodes and writes the record for a device.
func (s *FileStore) Put(ctx context.Context, id interfaces.DeviceID, record *interfaces.DeviceRecord) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}
	path := s.recordPath(id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write device record: %w", err)
	}

	s.log.Debug("Stored device record", slog.String("path", path), slog.Int("size", len(data)))
	return nil
}

// Has reports whether a record file exists for a device.
func (s *FileStore) Has(ctx context.Context, id interfaces.DeviceID) (bool, error) {
	_, err := os.Stat(s.recordPath(id))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat device record: %w", err)
	}
	return true, nil
}

// Delete removes the record file for a device. Missing files are not an
// error.
func (s *FileStore) Delete(ctx context.Context, id interfaces.DeviceID) error {
	err := os.Remove(s.recordPath(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete device record: %w", err)
	}
	return nil
}

// Name returns an identifier for logging.
func (s *FileStore) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(s.baseDir))
}

func (s *FileStore) recordPath(id interfaces.DeviceID) string {
	sum := sha256.Sum256([]byte(id))
	return filepath.Join(s.baseDir, "devices", fmt.Sprintf("%x", sum))
}
