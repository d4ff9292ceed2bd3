package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/zhanglinchao1/Feature-Algorithm/interfaces"
)

// S3Store persists device records in an S3 bucket (or a compatible service).
// Helper data is public by construction, so object-level access control only
// needs to protect integrity, not confidentiality.
type S3Store struct {
	client *s3.S3
	bucket string
	prefix string
	log    *slog.Logger
}

// NewS3Store creates an S3-backed store. If accessKey and secretKey are
// empty, the default credential chain is used.
func NewS3Store(bucket, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Store, error) {
	cfg := aws.Config{Region: aws.String(region)}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Store{
		client: s3.New(sess),
		bucket: bucket,
		prefix: strings.TrimSuffix(prefix, "/"),
		log:    log,
	}, nil
}

// Get fetches and decodes the record object for a device.
func (s *S3Store) Get(ctx context.Context, id interfaces.DeviceID) (*interfaces.DeviceRecord, error) {
	key := s.objectKey(id)
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, interfaces.ErrUnknownDevice
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	record := &interfaces.DeviceRecord{}
	if err := record.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode device record: %w", err)
	}

	s.log.Debug("Fetched device record from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)))
	return record, nil
}

// Put encodes and uploads the record object for a device.
func (s *S3Store) Put(ctx context.Context, id interfaces.DeviceID, record *interfaces.DeviceRecord) error {
	data, err := record.MarshalBinary()
	if err != nil {
		return err
	}
	key := s.objectKey(id)
	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	s.log.Debug("Stored device record in S3",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.Int("size", len(data)))
	return nil
}

// Has checks for the record object with a HEAD request.
func (s *S3Store) Has(ctx context.Context, id interfaces.DeviceID) (bool, error) {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return true, nil
}

// Delete removes the record object for a device.
func (s *S3Store) Delete(ctx context.Context, id interfaces.DeviceID) error {
	_, err := s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(id)),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}
	return nil
}

// Name returns an identifier for logging.
func (s *S3Store) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}

func (s *S3Store) objectKey(id interfaces.DeviceID) string {
	sum := sha256.Sum256([]byte(id))
	if s.prefix == "" {
		return fmt.Sprintf("devices/%x", sum)
	}
	return fmt.Sprintf("%s/devices/%x", s.prefix, sum)
}

func isS3NotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound", "NoSuchBucket":
			return true
		}
	}
	return false
}
