package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	metaFileName = "File-Name"
	metaFileType = "File-Type"
)

// MinioConfig holds the connection settings for the object store.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectAPI is the subset of *minio.Client the archive uses.
type ObjectAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
}

// MinioStore archives interchanges in a MinIO or S3 bucket.
type MinioStore struct {
	client ObjectAPI
	bucket string
}

// NewMinioStore connects to the endpoint and makes sure the bucket exists.
func NewMinioStore(ctx context.Context, cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("archive: creating minio client: %w", err)
	}
	s := NewMinioStoreWithClient(client, cfg.Bucket)
	if err := s.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func NewMinioStoreWithClient(client ObjectAPI, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("archive: checking bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("archive: creating bucket %s: %w", s.bucket, err)
	}
	return nil
}

// Put uploads content unless an object with the same hash is already
// stored.
func (s *MinioStore) Put(ctx context.Context, obj Object, content io.Reader) (*Object, error) {
	obj, data, err := readContent(obj, content)
	if err != nil {
		return nil, err
	}

	exists, err := s.Exists(ctx, obj.Hash)
	if err != nil {
		return nil, err
	}
	if exists {
		return &obj, nil
	}

	_, err = s.client.PutObject(ctx, s.bucket, obj.Key, bytes.NewReader(data), obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
		UserMetadata: map[string]string{
			metaFileName: obj.FileName,
			metaFileType: obj.FileType,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("archive: uploading %s: %w", obj.Key, err)
	}
	return &obj, nil
}

func (s *MinioStore) Get(ctx context.Context, hash string) (io.ReadCloser, *Object, error) {
	key := Key(hash)
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("archive: stat %s: %w", key, err)
	}
	body, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, nil, fmt.Errorf("archive: get %s: %w", key, err)
	}
	return body, objectFromInfo(hash, info), nil
}

func (s *MinioStore) Exists(ctx context.Context, hash string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, Key(hash), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("archive: stat %s: %w", Key(hash), err)
}

func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func objectFromInfo(hash string, info minio.ObjectInfo) *Object {
	created := info.LastModified
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return &Object{
		Key:         info.Key,
		Hash:        hash,
		FileName:    info.UserMetadata[metaFileName],
		FileType:    info.UserMetadata[metaFileType],
		ContentType: info.ContentType,
		Size:        info.Size,
		CreatedAt:   created,
	}
}
