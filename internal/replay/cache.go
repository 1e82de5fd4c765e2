package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/rs/zerolog"
)

// envelope is the stored form of one page.
type envelope struct {
	Template string            `json:"template"`
	Params   map[string]string `json:"params"`
	Cursor   *string           `json:"cursor"`
	PageInfo *domain.PageInfo  `json:"page_info"`
	Payload  json.RawMessage   `json:"payload"`
}

// Cache maps cache keys to stored pages.
type Cache struct {
	store  Store
	logger zerolog.Logger
}

// NewCache wraps a Store.
func NewCache(store Store, logger zerolog.Logger) *Cache {
	return &Cache{store: store, logger: logger.With().Str("component", "replay").Logger()}
}

// Lookup returns the stored page for key. Read and decode failures are
// logged and reported as a miss.
func (c *Cache) Lookup(ctx context.Context, key domain.CacheKey) (*domain.QueryResponse, bool) {
	body, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(&domain.StorageError{Op: "read", Key: key, Err: err}).Msg("cache read failed, treating as miss")
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn().Err(&domain.StorageError{Op: "decode", Key: key, Err: err}).Msg("cache entry unreadable, treating as miss")
		return nil, false
	}
	return &domain.QueryResponse{
		Template: env.Template,
		Payload:  env.Payload,
		PageInfo: env.PageInfo,
		Cached:   true,
	}, true
}

// Store persists resp as the page for req.
func (c *Cache) Store(ctx context.Context, req domain.QueryRequest, resp *domain.QueryResponse) error {
	key := req.Key()
	env := envelope{
		Template: req.Template(),
		Params:   req.Params(),
		PageInfo: resp.PageInfo,
		Payload:  resp.Payload,
	}
	if cursor, ok := req.Cursor(); ok {
		env.Cursor = &cursor
	}
	body, err := json.Marshal(env)
	if err != nil {
		return &domain.StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := c.store.Put(ctx, key, body); err != nil {
		return &domain.StorageError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// Executor is the live page fetcher used on cache misses.
type Executor interface {
	Execute(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)
}

// Source resolves page requests through the cache and the executor
// according to the run mode.
type Source struct {
	cache    *Cache
	executor Executor
	mode     domain.Mode
	logger   zerolog.Logger
}

// NewSource builds a Source. executor may be nil in replay mode.
func NewSource(cache *Cache, executor Executor, mode domain.Mode, logger zerolog.Logger) (*Source, error) {
	if _, err := domain.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	if mode != domain.ModeReplay && executor == nil {
		return nil, fmt.Errorf("mode %s needs an executor", mode)
	}
	return &Source{cache: cache, executor: executor, mode: mode, logger: logger.With().Str("component", "replay").Logger()}, nil
}

// Mode returns the mode the source runs in.
func (s *Source) Mode() domain.Mode { return s.mode }

// Fetch returns the page for req.
func (s *Source) Fetch(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	key := req.Key()

	switch s.mode {
	case domain.ModeReplay:
		resp, ok := s.cache.Lookup(ctx, key)
		if !ok {
			return nil, &domain.ReplayMissError{Key: key, Request: req.String()}
		}
		return resp, nil
	case domain.ModeResume:
		if resp, ok := s.cache.Lookup(ctx, key); ok {
			return resp, nil
		}
	}

	// No new calls once the run is aborted.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.executor.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	// Persist even when ctx was cancelled during the call; the page is complete.
	if err := s.cache.Store(context.WithoutCancel(ctx), req, resp); err != nil {
		s.logger.Warn().Err(err).Str("request", req.String()).Msg("failed to persist page, continuing with in-memory copy")
	}
	return resp, nil
}
