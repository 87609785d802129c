// Package memory holds process-local implementations of the domain
// repositories, used with database.driver=memory and in tests.
package memory

import (
	"bytes"
	"context"
	"document-review/internal/domain/entities"
	"document-review/internal/domain/repositories"
	"io"
	"sync"
	"time"
)

type documentRepository struct {
	mu   sync.RWMutex
	docs map[string]*entities.Document
	now  func() time.Time
}

func NewDocumentRepository() repositories.DocumentRepository {
	return &documentRepository{
		docs: make(map[string]*entities.Document),
		now:  time.Now,
	}
}

func (r *documentRepository) Create(ctx context.Context, doc *entities.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs[doc.ID] = doc.Clone()
	return nil
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*entities.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return doc.Clone(), nil
}

func (r *documentRepository) List(ctx context.Context) ([]*entities.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs := make([]*entities.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		docs = append(docs, doc.Clone())
	}
	return docs, nil
}

func (r *documentRepository) Update(ctx context.Context, id string, patch *entities.DocumentPatch) (*entities.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	if err := patch.Guard.Check(doc); err != nil {
		return nil, repositories.ErrPreconditionFailed
	}

	next := doc.Clone()
	patch.Apply(next, r.now())
	r.docs[id] = next

	return next.Clone(), nil
}

type blobStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewBlobStore() repositories.BlobStore {
	return &blobStore{blobs: make(map[string][]byte)}
}

func (s *blobStore) Put(ctx context.Context, key string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs[key] = data
	return int64(len(data)), nil
}

func (s *blobStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *blobStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.blobs, key)
	return nil
}
