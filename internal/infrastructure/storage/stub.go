package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	appbilling "github.com/rentledger/backend/internal/application/billing"
)

// StubProofImageStorage is an in-memory stand-in for an object store.
// Used in development and tests when no S3-compatible backend is available;
// URLs it returns are not actually servable.
type StubProofImageStorage struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]struct{}
}

// NewStubProofImageStorage creates a stub store. Keys passed to
// GenerateUploadURL are immediately considered uploaded.
func NewStubProofImageStorage(baseURL string) *StubProofImageStorage {
	if baseURL == "" {
		baseURL = "https://storage.example.com"
	}
	return &StubProofImageStorage{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: make(map[string]struct{}),
	}
}

// GenerateUploadURL returns a fake upload URL and records the key as uploaded
func (s *StubProofImageStorage) GenerateUploadURL(_ context.Context, storageKey, _ string, expiresIn time.Duration) (string, time.Time, error) {
	s.mu.Lock()
	s.objects[storageKey] = struct{}{}
	s.mu.Unlock()
	return s.baseURL + "/upload/" + storageKey, time.Now().Add(expiresIn), nil
}

// GenerateDownloadURL returns a fake download URL
func (s *StubProofImageStorage) GenerateDownloadURL(_ context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	return s.baseURL + "/" + storageKey, time.Now().Add(expiresIn), nil
}

// ObjectExists reports whether an upload URL was issued for the key
func (s *StubProofImageStorage) ObjectExists(_ context.Context, storageKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[storageKey]
	return ok, nil
}

// DeleteObject forgets the key
func (s *StubProofImageStorage) DeleteObject(_ context.Context, storageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, storageKey)
	return nil
}

var _ appbilling.ProofImageStorage = (*StubProofImageStorage)(nil)
