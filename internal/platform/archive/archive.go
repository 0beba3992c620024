// Package archive keeps the raw bytes of every decoded interchange, keyed
// by the SHA-256 of the content so the same file is stored once.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

var (
	ErrNotFound        = errors.New("archive: object not found")
	ErrFileTooLarge    = errors.New("archive: file exceeds maximum allowed size")
	ErrMissingFileName = errors.New("archive: file name is required")
)

// MaxFileSize is the largest interchange accepted (100 MB).
const MaxFileSize = 100 * 1024 * 1024

const ContentType = "application/edi-x12"

// Object describes an archived interchange.
type Object struct {
	Key         string    `json:"key"`
	Hash        string    `json:"hash"`
	FileName    string    `json:"file_name"`
	FileType    string    `json:"file_type,omitempty"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store is implemented by archive backends.
type Store interface {
	Put(ctx context.Context, obj Object, content io.Reader) (*Object, error)
	Get(ctx context.Context, hash string) (io.ReadCloser, *Object, error)
	Exists(ctx context.Context, hash string) (bool, error)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key lays objects out as x12/<first two hash chars>/<hash>.
func Key(hash string) string {
	if len(hash) < 2 {
		return "x12/" + hash
	}
	return "x12/" + hash[:2] + "/" + hash
}

// readContent buffers content, enforcing MaxFileSize, and fills in the
// derived fields of obj.
func readContent(obj Object, content io.Reader) (Object, []byte, error) {
	if obj.FileName == "" {
		return obj, nil, ErrMissingFileName
	}
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return obj, nil, fmt.Errorf("archive: reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return obj, nil, ErrFileTooLarge
	}

	obj.Hash = Hash(data)
	obj.Key = Key(obj.Hash)
	obj.Size = int64(len(data))
	if obj.ContentType == "" {
		obj.ContentType = ContentType
	}
	obj.CreatedAt = time.Now().UTC()
	return obj, data, nil
}

// MemoryStore is an in-process Store for tests and runs without MinIO.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*storedObject
}

type storedObject struct {
	meta    Object
	content []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*storedObject)}
}

// Put stores content. Storing identical bytes again keeps the first
// object's metadata.
func (s *MemoryStore) Put(_ context.Context, obj Object, content io.Reader) (*Object, error) {
	obj, data, err := readContent(obj, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.objects[obj.Hash]; ok {
		out := existing.meta
		return &out, nil
	}
	s.objects[obj.Hash] = &storedObject{meta: obj, content: data}
	out := obj
	return &out, nil
}

func (s *MemoryStore) Get(_ context.Context, hash string) (io.ReadCloser, *Object, error) {
	s.mu.RLock()
	o, ok := s.objects[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}
	meta := o.meta
	return io.NopCloser(bytes.NewReader(o.content)), &meta, nil
}

func (s *MemoryStore) Exists(_ context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[hash]
	return ok, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
