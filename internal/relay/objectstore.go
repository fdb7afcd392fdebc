package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ErrKeyExists is returned when a Put would overwrite an existing object.
// Every upload is a new object; overwrites are disabled by contract.
var ErrKeyExists = errors.New("object key already exists")

// ObjectStore is the durable storage boundary for persisted assets.
type ObjectStore interface {
	// Put writes a new object. Keys are never overwritten; a duplicate key
	// fails with ErrKeyExists.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// PublicURL returns the stable public address for a stored key.
	PublicURL(key string) string
}

// --- S3 ---

// S3Store stores objects in a single S3 bucket fronted by a public base URL
// (the bucket website endpoint or a CDN distribution).
type S3Store struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store creates an S3-backed object store.
func NewS3Store(client *s3.Client, bucket, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// Put uploads the object with a conditional write so an existing key is never
// replaced.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       &s.bucket,
		Key:          &key,
		Body:         bytes.NewReader(data),
		ContentType:  &contentType,
		CacheControl: aws.String("public, max-age=31536000, immutable"),
		IfNoneMatch:  aws.String("*"),
	})
	if err != nil {
		if strings.Contains(err.Error(), "PreconditionFailed") {
			return fmt.Errorf("%w: %s", ErrKeyExists, key)
		}
		return fmt.Errorf("S3 PutObject %s: %w", key, err)
	}
	log.Debug().Str("bucket", s.bucket).Str("key", key).Int("bytes", len(data)).Msg("Object uploaded to S3")
	return nil
}

// Delete removes the object from S3.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("S3 DeleteObject %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the object's public address.
func (s *S3Store) PublicURL(key string) string {
	return s.publicBaseURL + "/" + key
}

// --- In-memory (tests) ---

// MemStore is an in-memory ObjectStore for tests.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

var _ ObjectStore = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *MemStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return fmt.Errorf("%w: %s", ErrKeyExists, key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.objects[key] = cp
	m.types[key] = contentType
	return nil
}

func (m *MemStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	delete(m.types, key)
	return nil
}

func (m *MemStore) PublicURL(key string) string {
	return "https://storage.test/" + key
}

// Get returns a stored object's bytes and content type for assertions.
func (m *MemStore) Get(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, m.types[key], ok
}

// Len returns the number of stored objects.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
