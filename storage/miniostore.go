package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// minioAPI is the subset of *minio.Client used by MinioStore, kept
// narrow so tests can run without a server.
type minioAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

type minioClientWrapper struct{ c *minio.Client }

func (w minioClientWrapper) BucketExists(ctx context.Context, bucketName string) (bool, error) {
	return w.c.BucketExists(ctx, bucketName)
}
func (w minioClientWrapper) MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error {
	return w.c.MakeBucket(ctx, bucketName, opts)
}
func (w minioClientWrapper) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	return w.c.PutObject(ctx, bucketName, objectName, reader, objectSize, opts)
}
func (w minioClientWrapper) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	obj, err := w.c.GetObject(ctx, bucketName, objectName, opts)
	if err != nil {
		return nil, err
	}
	return obj, nil
}
func (w minioClientWrapper) RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error {
	return w.c.RemoveObject(ctx, bucketName, objectName, opts)
}
func (w minioClientWrapper) StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error) {
	return w.c.StatObject(ctx, bucketName, objectName, opts)
}
func (w minioClientWrapper) ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	return w.c.ListObjects(ctx, bucketName, opts)
}

// MinioOptions configures an S3-compatible backend.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string // object name prefix, e.g. "blobs/"
	UseSSL    bool
}

// MinioStore implements Store on an S3-compatible bucket. Objects are
// named {prefix}{hex(addr)}.
type MinioStore struct {
	api    minioAPI
	bucket string
	prefix string
}

var _ Store = (*MinioStore)(nil)

// NewMinioStore dials the endpoint and ensures the bucket exists.
func NewMinioStore(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: minio client: %w", ErrIOFailure, err)
	}
	return newMinioStoreWithAPI(ctx, minioClientWrapper{c: client}, opts.Bucket, opts.Prefix)
}

func newMinioStoreWithAPI(ctx context.Context, api minioAPI, bucket, prefix string) (*MinioStore, error) {
	if bucket == "" {
		return nil, ErrInvalidBucket
	}
	s := &MinioStore{api: api, bucket: bucket, prefix: prefix}
	if err := s.ensureBucketExists(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// WithPrefix returns a store sharing the same bucket under another prefix.
func (s *MinioStore) WithPrefix(prefix string) *MinioStore {
	return &MinioStore{api: s.api, bucket: s.bucket, prefix: prefix}
}

func (s *MinioStore) ensureBucketExists(ctx context.Context) error {
	exists, err := s.api.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("%w: check bucket %q: %w", ErrIOFailure, s.bucket, err)
	}
	if !exists {
		if err := s.api.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("%w: create bucket %q: %w", ErrIOFailure, s.bucket, err)
		}
	}
	return nil
}

func (s *MinioStore) objectName(addr Address) string {
	return s.prefix + addr.String()
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Put uploads data under addr.
func (s *MinioStore) Put(ctx context.Context, addr Address, data []byte) error {
	if len(data) == 0 {
		return ErrEmptyContent
	}
	_, err := s.api.PutObject(ctx, s.bucket, s.objectName(addr), bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return fmt.Errorf("%w: upload object: %w", ErrIOFailure, err)
	}
	return nil
}

// Get downloads the object for addr.
func (s *MinioStore) Get(ctx context.Context, addr Address) ([]byte, error) {
	obj, err := s.api.GetObject(ctx, s.bucket, s.objectName(addr), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get object: %w", ErrIOFailure, err)
	}
	defer func() { _ = obj.Close() }()

	// GetObject is lazy; the missing-key error surfaces on first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read object: %w", ErrIOFailure, err)
	}
	return data, nil
}

// Has stats the object for addr.
func (s *MinioStore) Has(ctx context.Context, addr Address) (bool, error) {
	_, err := s.api.StatObject(ctx, s.bucket, s.objectName(addr), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat object: %w", ErrIOFailure, err)
	}
	return true, nil
}

// Delete removes the object for addr. S3 deletes are idempotent, so a
// stat is issued first to report ErrNotFound like the other stores.
func (s *MinioStore) Delete(ctx context.Context, addr Address) error {
	ok, err := s.Has(ctx, addr)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	if err := s.api.RemoveObject(ctx, s.bucket, s.objectName(addr), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%w: delete object: %w", ErrIOFailure, err)
	}
	return nil
}

// Size returns the stored object size.
func (s *MinioStore) Size(ctx context.Context, addr Address) (int64, error) {
	info, err := s.api.StatObject(ctx, s.bucket, s.objectName(addr), minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: stat object: %w", ErrIOFailure, err)
	}
	return info.Size, nil
}

// List returns every address under the store prefix.
func (s *MinioStore) List(ctx context.Context) ([]Address, error) {
	var out []Address
	for info := range s.api.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("%w: list objects: %w", ErrIOFailure, info.Err)
		}
		raw, err := hex.DecodeString(strings.TrimPrefix(info.Key, s.prefix))
		if err != nil || len(raw) != AddressSize {
			continue
		}
		out = append(out, Address(raw))
	}
	return out, nil
}
