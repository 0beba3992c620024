package archive

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleX12 = "ISA*00*          *00*          *ZZ*SENDER~ST*837*0001~SE*2*0001~"

func TestHash_Stable(t *testing.T) {
	h := Hash([]byte("abc"))
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	assert.Equal(t, "x12/ba/"+h, Key(h))
	assert.Equal(t, "x12/a", Key("a"))
}

func TestMemoryStore_PutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	obj, err := s.Put(ctx, Object{FileName: "claims.837", FileType: "837"}, strings.NewReader(sampleX12))
	require.NoError(t, err)
	assert.Equal(t, Hash([]byte(sampleX12)), obj.Hash)
	assert.Equal(t, int64(len(sampleX12)), obj.Size)
	assert.Equal(t, ContentType, obj.ContentType)
	assert.False(t, obj.CreatedAt.IsZero())

	body, meta, err := s.Get(ctx, obj.Hash)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, sampleX12, string(data))
	assert.Equal(t, "claims.837", meta.FileName)

	ok, err := s.Exists(ctx, obj.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryStore_DeduplicatesByHash(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.Put(ctx, Object{FileName: "a.837"}, strings.NewReader(sampleX12))
	require.NoError(t, err)
	second, err := s.Put(ctx, Object{FileName: "b.837"}, strings.NewReader(sampleX12))
	require.NoError(t, err)

	assert.Equal(t, 1, s.Len())
	assert.Equal(t, first.Hash, second.Hash)
	assert.Equal(t, "a.837", second.FileName)
}

func TestMemoryStore_Errors(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Put(ctx, Object{}, strings.NewReader(sampleX12))
	assert.ErrorIs(t, err, ErrMissingFileName)

	_, _, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

type fakeObjectAPI struct {
	bucketExists bool
	madeBucket   string
	objects      map[string][]byte
	puts         int
	statErr      error
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string][]byte)}
}

func (f *fakeObjectAPI) BucketExists(_ context.Context, _ string) (bool, error) {
	return f.bucketExists, nil
}

func (f *fakeObjectAPI) MakeBucket(_ context.Context, name string, _ minio.MakeBucketOptions) error {
	f.madeBucket = name
	f.bucketExists = true
	return nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, _, key string, r io.Reader, _ int64, _ minio.PutObjectOptions) (minio.UploadInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.objects[key] = data
	f.puts++
	return minio.UploadInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeObjectAPI) GetObject(_ context.Context, _, _ string, _ minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not supported by fake")
}

func (f *fakeObjectAPI) StatObject(_ context.Context, _, key string, _ minio.StatObjectOptions) (minio.ObjectInfo, error) {
	if f.statErr != nil {
		return minio.ObjectInfo{}, f.statErr
	}
	data, ok := f.objects[key]
	if !ok {
		return minio.ObjectInfo{}, minio.ErrorResponse{Code: "NoSuchKey"}
	}
	return minio.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func TestMinioStore_EnsureBucket(t *testing.T) {
	api := newFakeObjectAPI()
	s := NewMinioStoreWithClient(api, "edi-archive")

	require.NoError(t, s.EnsureBucket(context.Background()))
	assert.Equal(t, "edi-archive", api.madeBucket)
}

func TestMinioStore_PutSkipsExisting(t *testing.T) {
	api := newFakeObjectAPI()
	s := NewMinioStoreWithClient(api, "edi-archive")
	ctx := context.Background()

	obj, err := s.Put(ctx, Object{FileName: "era.835", FileType: "835"}, strings.NewReader(sampleX12))
	require.NoError(t, err)
	assert.Equal(t, []byte(sampleX12), api.objects[obj.Key])

	_, err = s.Put(ctx, Object{FileName: "era.835"}, strings.NewReader(sampleX12))
	require.NoError(t, err)
	assert.Equal(t, 1, api.puts)

	ok, err := s.Exists(ctx, obj.Hash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMinioStore_NotFoundAndErrors(t *testing.T) {
	api := newFakeObjectAPI()
	s := NewMinioStoreWithClient(api, "edi-archive")
	ctx := context.Background()

	_, _, err := s.Get(ctx, "deadbeef")
	assert.ErrorIs(t, err, ErrNotFound)

	api.statErr = errors.New("connection refused")
	_, err = s.Exists(ctx, "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
