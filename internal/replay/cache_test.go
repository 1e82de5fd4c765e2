package replay

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockExecutor is a mock implementation of the Executor interface.
type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QueryResponse), args.Error(1)
}

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, domain.CacheKey) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (brokenStore) Put(context.Context, domain.CacheKey, []byte) error {
	return errors.New("disk on fire")
}

func (brokenStore) Close() error { return nil }

func samplePage() *domain.QueryResponse {
	return &domain.QueryResponse{
		Template: domain.TemplatePullRequests,
		Payload:  []byte(`{"edges":[]}`),
		PageInfo: &domain.PageInfo{HasNextPage: true, EndCursor: "c1"},
	}
}

func sampleRequest() domain.QueryRequest {
	return domain.NewQueryRequest(domain.TemplatePullRequests, map[string]string{"query": "repo:o/r is:pr"})
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "graphql"))
	require.NoError(t, err)
	sq, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "graphql.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Store{"file": fs, "sqlite": sq}
}

func TestCache_StoreAndLookup(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			cache := NewCache(store, zerolog.Nop())
			req := sampleRequest()

			_, ok := cache.Lookup(ctx, req.Key())
			assert.False(t, ok)

			require.NoError(t, cache.Store(ctx, req, samplePage()))

			got, ok := cache.Lookup(ctx, req.Key())
			require.True(t, ok)
			assert.True(t, got.Cached)
			assert.Equal(t, domain.TemplatePullRequests, got.Template)
			assert.Equal(t, samplePage().PageInfo, got.PageInfo)
			assert.JSONEq(t, `{"edges":[]}`, string(got.Payload))

			// a different cursor is a different entry
			_, ok = cache.Lookup(ctx, req.WithCursor("c1").Key())
			assert.False(t, ok)
		})
	}
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	cache := NewCache(store, zerolog.Nop())
	req := sampleRequest()

	require.NoError(t, cache.Store(context.Background(), req, samplePage()))

	entries, err := os.ReadDir(filepath.Join(dir, domain.TemplatePullRequests))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files are left behind")
	assert.Equal(t, req.Key().Digest+".json", entries[0].Name())
}

func TestSQLiteStore_Replace(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "graphql.db"))
	require.NoError(t, err)
	defer store.Close()
	cache := NewCache(store, zerolog.Nop())
	req := sampleRequest()

	require.NoError(t, cache.Store(ctx, req, samplePage()))
	require.NoError(t, cache.Store(ctx, req, samplePage()))
	require.NoError(t, cache.Store(ctx, req.WithCursor("c1"), samplePage()))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "storing the same key twice keeps one row")
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	req := sampleRequest()
	require.NoError(t, store.Put(context.Background(), req.Key(), []byte("{not json")))

	_, ok := NewCache(store, zerolog.Nop()).Lookup(context.Background(), req.Key())
	assert.False(t, ok)
}

func TestSource_Modes(t *testing.T) {
	ctx := context.Background()
	req := sampleRequest()

	t.Run("live fetches and writes through", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		cache := NewCache(store, zerolog.Nop())
		require.NoError(t, cache.Store(ctx, req, &domain.QueryResponse{Payload: []byte(`"stale"`), PageInfo: &domain.PageInfo{}}))

		executor := new(mockExecutor)
		executor.On("Execute", mock.Anything, req).Return(samplePage(), nil).Once()
		source, err := NewSource(cache, executor, domain.ModeLive, zerolog.Nop())
		require.NoError(t, err)

		got, err := source.Fetch(ctx, req)
		require.NoError(t, err)
		assert.False(t, got.Cached, "live mode never reads the cache")

		stored, ok := cache.Lookup(ctx, req.Key())
		require.True(t, ok)
		assert.JSONEq(t, `{"edges":[]}`, string(stored.Payload))
		executor.AssertExpectations(t)
	})

	t.Run("replay miss is fatal", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		source, err := NewSource(NewCache(store, zerolog.Nop()), nil, domain.ModeReplay, zerolog.Nop())
		require.NoError(t, err)

		_, err = source.Fetch(ctx, req)
		var miss *domain.ReplayMissError
		require.ErrorAs(t, err, &miss)
		assert.Equal(t, req.Key(), miss.Key)
	})

	t.Run("resume serves hits and fetches misses", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		cache := NewCache(store, zerolog.Nop())
		require.NoError(t, cache.Store(ctx, req, samplePage()))

		next := req.WithCursor("c1")
		executor := new(mockExecutor)
		executor.On("Execute", mock.Anything, next).Return(&domain.QueryResponse{Payload: []byte(`{}`), PageInfo: &domain.PageInfo{}}, nil).Once()
		source, err := NewSource(cache, executor, domain.ModeResume, zerolog.Nop())
		require.NoError(t, err)

		first, err := source.Fetch(ctx, req)
		require.NoError(t, err)
		assert.True(t, first.Cached)

		second, err := source.Fetch(ctx, next)
		require.NoError(t, err)
		assert.False(t, second.Cached)
		_, ok := cache.Lookup(ctx, next.Key())
		assert.True(t, ok)
		executor.AssertExpectations(t)
	})

	t.Run("storage failure is not fatal", func(t *testing.T) {
		executor := new(mockExecutor)
		executor.On("Execute", mock.Anything, req).Return(samplePage(), nil)
		source, err := NewSource(NewCache(brokenStore{}, zerolog.Nop()), executor, domain.ModeResume, zerolog.Nop())
		require.NoError(t, err)

		got, err := source.Fetch(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, samplePage().Payload, got.Payload)
	})

	t.Run("aborted run issues no call", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		require.NoError(t, err)
		executor := new(mockExecutor)
		source, err := NewSource(NewCache(store, zerolog.Nop()), executor, domain.ModeLive, zerolog.Nop())
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = source.Fetch(cancelled, req)
		assert.ErrorIs(t, err, context.Canceled)
		executor.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	})

	t.Run("page of a call cancelled midway is still stored", func(t *testing.T) {
		for name, store := range stores(t) {
			t.Run(name, func(t *testing.T) {
				cache := NewCache(store, zerolog.Nop())
				running, cancel := context.WithCancel(ctx)
				defer cancel()

				executor := new(mockExecutor)
				executor.On("Execute", mock.Anything, req).
					Run(func(mock.Arguments) { cancel() }).
					Return(samplePage(), nil).Once()
				source, err := NewSource(cache, executor, domain.ModeLive, zerolog.Nop())
				require.NoError(t, err)

				got, err := source.Fetch(running, req)
				require.NoError(t, err)
				assert.Equal(t, samplePage().PageInfo, got.PageInfo)
				require.ErrorIs(t, running.Err(), context.Canceled)

				stored, ok := cache.Lookup(ctx, req.Key())
				require.True(t, ok)
				assert.JSONEq(t, `{"edges":[]}`, string(stored.Payload))
				executor.AssertExpectations(t)
			})
		}
	})

	t.Run("live mode requires an executor", func(t *testing.T) {
		_, err := NewSource(NewCache(brokenStore{}, zerolog.Nop()), nil, domain.ModeLive, zerolog.Nop())
		assert.Error(t, err)
	})
}
