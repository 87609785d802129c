package services

import (
	"context"
	"document-review/internal/domain/entities"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

const (
	documentListKey           = "docs:list"
	documentListGenerationKey = "docs:list:gen"
)

var ErrCacheMiss = errors.New("cache miss")

// CacheService caches the document list only. Single documents are always
// read from the store so review transitions never act on a cached copy.
//
// Every write bumps the list generation. GetDocumentList reports the
// generation it looked at, and SetDocumentList stores under that generation,
// so a list read before a write can never be served after it.
type CacheService interface {
	GetDocumentList(ctx context.Context) ([]entities.DocumentSummary, int64, error)
	SetDocumentList(ctx context.Context, generation int64, docs []entities.DocumentSummary) error
	InvalidateDocumentList(ctx context.Context) error
}

type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, duration time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

type redisCacheService struct {
	client        RedisClient
	cacheDuration time.Duration
}

func NewRedisCacheService(client RedisClient, cacheDuration time.Duration) CacheService {
	return &redisCacheService{
		client:        client,
		cacheDuration: cacheDuration,
	}
}

func listKey(generation int64) string {
	return documentListKey + ":" + strconv.FormatInt(generation, 10)
}

func (s *redisCacheService) generation(ctx context.Context) (int64, error) {
	data, err := s.client.Get(ctx, documentListGenerationKey)
	if errors.Is(err, ErrCacheMiss) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(data, 10, 64)
}

// GetDocumentList returns ErrCacheMiss together with the current generation
// when nothing is cached for it.
func (s *redisCacheService) GetDocumentList(ctx context.Context) ([]entities.DocumentSummary, int64, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	data, err := s.client.Get(ctx, listKey(gen))
	if err != nil {
		return nil, gen, err
	}

	var docs []entities.DocumentSummary
	if err := json.Unmarshal([]byte(data), &docs); err != nil {
		return nil, gen, err
	}

	return docs, gen, nil
}

func (s *redisCacheService) SetDocumentList(ctx context.Context, generation int64, docs []entities.DocumentSummary) error {
	data, err := json.Marshal(docs)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, listKey(generation), data, s.cacheDuration)
}

func (s *redisCacheService) InvalidateDocumentList(ctx context.Context) error {
	_, err := s.client.Incr(ctx, documentListGenerationKey)
	return err
}

type noopCacheService struct{}

// NewNoopCacheService is used when Redis is disabled.
func NewNoopCacheService() CacheService {
	return noopCacheService{}
}

func (noopCacheService) GetDocumentList(context.Context) ([]entities.DocumentSummary, int64, error) {
	return nil, 0, ErrCacheMiss
}

func (noopCacheService) SetDocumentList(context.Context, int64, []entities.DocumentSummary) error {
	return nil
}

func (noopCacheService) InvalidateDocumentList(context.Context) error {
	return nil
}
