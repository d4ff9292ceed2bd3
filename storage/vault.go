package storage

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/vault/api"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// VaultStore persists device records in HashiCorp Vault using the KV v2
// engine. Helper data is public, but keeping it next to the rest of a
// deployment's secrets simplifies operational access control.
type VaultStore struct {
	client    *api.Client
	mountPath string
	dataPath  string
	log       *slog.Logger
}

// NewVaultStore creates a Vault-backed store. The token may be empty if the
// environment already configures one (VAULT_TOKEN).
func NewVaultStore(address, token, mountPath, dataPath string, log *slog.Logger) (*VaultStore, error) {
	config := api.DefaultConfig()
	config.Address = address

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	return &VaultStore{
		client:    client,
		mountPath: strings.TrimSuffix(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
		log:       log,
	}, nil
}

// Get reads and decodes the record for a device from Vault.
func (s *VaultStore) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceRecord, error) {
	path := s.secretPath("data", id)
	secret, err := s.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, interfaces.ErrUnknownDevice
	}

	inner, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}
	encoded, ok := inner["record"].(string)
	if !ok {
		return nil, fmt.Errorf("record key not found in Vault data")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Vault record: %w", err)
	}

	record := &interfaces.DeviceRecord{}
	if err := record.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode device record: %w", err)
	}

	s.log.Debug("Fetched device record from Vault", slog.String("path", path))
	return record, nil
}

// Put encodes and writes the record for a device to Vault.
func (s *VaultStore) Put(ctx context.Context, id interfaces.DeviceID, record *interfaces.DeviceRecord) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}
	path := s.secretPath("data", id)
	_, err = s.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"record": base64.StdEncoding.EncodeToString(data),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored device record in Vault", slog.String("path", path), slog.Int("size", len(data)))
	return nil
}

// Has reports whether a record exists for a device.
func (s *VaultStore) Has(ctx context.Context, id interfaces.DeviceID) (bool, error) {
	secret, err := s.client.Logical().ReadWithContext(ctx, s.secretPath("data", id))
	if err != nil {
		return false, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return secret != nil && secret.Data != nil, nil
}

// Delete removes the record and its version metadata for a device.
func (s *VaultStore) Delete(ctx context.Context, id interfaces.DeviceID) error {
	_, err := s.client.Logical().DeleteWithContext(ctx, s.secretPath("metadata", id))
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return nil
}

// Name returns an identifier for logging.
func (s *VaultStore) Name() string {
	return fmt.Sprintf("vault-%s", s.mountPath)
}

func (s *VaultStore) secretPath(op string, id interfaces.DeviceID) string {
	sum := sha256.Sum256([]byte(id))
	if s.dataPath == "" {
		return fmt.Sprintf("%s/%s/devices/%x", s.mountPath, op, sum)
	}
	return fmt.Sprintf("%s/%s/%s/devices/%x", s.mountPath, op, s.dataPath, sum)
}
