package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Minio is an S3-compatible Store backend. Namespaces become key
// prefixes inside a single bucket, and LastModified stands in for the
// filesystem mtime.
type Minio struct {
	client *minio.Client
	bucket string
}

// MinioConfig carries the connection settings, normally read from env.
type MinioConfig struct {
	Endpoint  string // "minio:9000" or "http(s)://minio:9000"
	AccessKey string
	SecretKey string
	Bucket    string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewMinio connects to the endpoint and verifies the bucket exists.
func NewMinio(ctx context.Context, cfg MinioConfig) (*Minio, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	// Sanity check: bucket must exist.
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", cfg.Bucket)
	}

	return &Minio{client: client, bucket: cfg.Bucket}, nil
}

func objectKey(ns Namespace, name string) string {
	return string(ns) + "/" + name
}

func (s *Minio) Put(ctx context.Context, ns Namespace, name string, r io.Reader) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey(ns, name), r, -1,
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (s *Minio) Get(ctx context.Context, ns Namespace, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectKey(ns, name), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer func() { _ = obj.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, obj); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read object: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Minio) Delete(ctx context.Context, ns Namespace, name string) error {
	key := objectKey(ns, name)

	// RemoveObject succeeds on absent keys; stat first so callers can
	// tell a no-op delete from a real one, matching the fs backend.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return ErrNotFound
		}
		return fmt.Errorf("stat object: %w", err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (s *Minio) List(ctx context.Context, ns Namespace) ([]Entry, error) {
	prefix := string(ns) + "/"

	var entries []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list namespace %s: %w", ns, obj.Err)
		}
		entries = append(entries, Entry{
			Name:    strings.TrimPrefix(obj.Key, prefix),
			ModTime: obj.LastModified,
		})
	}
	return entries, nil
}
