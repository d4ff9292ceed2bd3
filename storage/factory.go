package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// NewStoreFromURI creates a device store from a location URI.
//
// Supported schemes:
//
//	memory://
//	file:///var/lib/featurekeyd
//	s3://[accessKey:secretKey@]bucket/prefix?region=us-east-1[&endpoint=...]
//	vault://vault.example.com:8200/mount/path?token=...  (token falls back to VAULT_TOKEN)
func NewStoreFromURI(uri string, log *slog.Logger) (interfaces.DeviceStore, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid store URI: %w", err)
	}

	switch parsed.Scheme {
	case "memory":
		return NewMemoryStore(), nil

	case "file":
		path := parsed.Path
		if parsed.Host != "" {
			path = parsed.Host + path
		}
		if path == "" {
			return nil, fmt.Errorf("%w: file store URI needs a path", interfaces.ErrInvalidConfig)
		}
		return NewFileStore(path, log)

	case "s3":
		bucket := parsed.Host
		if bucket == "" {
			return nil, fmt.Errorf("%w: s3 store URI needs a bucket", interfaces.ErrInvalidConfig)
		}
		region := parsed.Query().Get("region")
		if region == "" {
			region = "us-east-1"
		}
		var accessKey, secretKey string
		if parsed.User != nil {
			accessKey = parsed.User.Username()
			secretKey, _ = parsed.User.Password()
		}
		prefix := strings.TrimPrefix(parsed.Path, "/")
		return NewS3Store(bucket, prefix, region, parsed.Query().Get("endpoint"), accessKey, secretKey, log)

	case "vault":
		parts := strings.SplitN(strings.Trim(parsed.Path, "/"), "/", 2)
		if parsed.Host == "" || len(parts) < 1 || parts[0] == "" {
			return nil, fmt.Errorf("%w: vault store URI needs a host and mount path", interfaces.ErrInvalidConfig)
		}
		mountPath := parts[0]
		dataPath := ""
		if len(parts) == 2 {
			dataPath = parts[1]
		}
		token := parsed.Query().Get("token")
		if token == "" {
			token = os.Getenv("VAULT_TOKEN")
		}
		scheme := "https"
		if parsed.Query().Get("insecure") == "true" {
			scheme = "http"
		}
		return NewVaultStore(fmt.Sprintf("%s://%s", scheme, parsed.Host), token, mountPath, dataPath, log)

	default:
		return nil, fmt.Errorf("%w: unsupported store scheme %q", interfaces.ErrInvalidConfig, parsed.Scheme)
	}
}
