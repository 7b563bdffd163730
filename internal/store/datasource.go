package store

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// DataSourceStore caches datasource metadata records known to the client.
// The remote API is the source of truth; the cache is updated from
// confirmed responses only.
type DataSourceStore struct {
	client DataSourceAPI
	log    *zap.Logger

	mu        sync.RWMutex
	sources   []api.DataSource
	currentID int64
	loading   bool
	lastErr   string
}

// NewDataSourceStore creates an empty store backed by the given gateway.
func NewDataSourceStore(client DataSourceAPI, log *zap.Logger) *DataSourceStore {
	return &DataSourceStore{client: client, log: log}
}

func (s *DataSourceStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

// ListAll refreshes the full datasource list from the gateway, replacing
// the cached collection on success.
func (s *DataSourceStore) ListAll(ctx context.Context) ([]api.DataSource, error) {
	s.begin()
	list, err := s.client.ListDataSources(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return nil, err
	}
	s.sources = list
	return append([]api.DataSource(nil), list...), nil
}

// GetByID fetches a single datasource and upserts it into the cache.
func (s *DataSourceStore) GetByID(ctx context.Context, id int64) (api.DataSource, error) {
	s.begin()
	ds, err := s.client.GetDataSource(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.DataSource{}, err
	}
	s.upsertLocked(ds)
	return ds, nil
}

// Upload posts a CSV file and appends the resulting record to the cache.
// It does not re-fetch the full list.
func (s *DataSourceStore) Upload(ctx context.Context, file io.Reader, filename, name string) (api.DataSource, error) {
	s.begin()
	ds, err := s.client.UploadDataSource(ctx, file, filename, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.DataSource{}, err
	}
	s.sources = append(s.sources, ds)
	return ds, nil
}

// Delete removes a datasource. The cache entry is removed only after the
// server confirms deletion; if it was the current selection, the
// selection is cleared.
func (s *DataSourceStore) Delete(ctx context.Context, id int64) error {
	s.begin()
	err := s.client.DeleteDataSource(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return err
	}
	for i, ds := range s.sources {
		if ds.ID == id {
			s.sources = append(s.sources[:i], s.sources[i+1:]...)
			break
		}
	}
	if s.currentID == id {
		s.currentID = 0
	}
	return nil
}

// QueryRange fetches a datasource's series for an optional time range.
// The result is returned to the caller, not cached here.
func (s *DataSourceStore) QueryRange(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error) {
	s.begin()
	ts, err := s.client.QueryDataSourceData(ctx, id, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.TimeSeries{}, err
	}
	return ts, nil
}

// PreviewCSV describes a CSV file without persisting it server-side.
func (s *DataSourceStore) PreviewCSV(ctx context.Context, file io.Reader, filename string) (api.CSVPreview, error) {
	s.begin()
	preview, err := s.client.PreviewCSV(ctx, file, filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.CSVPreview{}, err
	}
	return preview, nil
}

// Select marks a datasource as the current selection. Zero clears it.
func (s *DataSourceStore) Select(id int64) {
	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()
}

// Current returns the currently selected datasource, if cached.
func (s *DataSourceStore) Current() (api.DataSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(s.currentID)
}

// CachedAll returns a copy of the cached list, without a network call.
func (s *DataSourceStore) CachedAll() []api.DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.DataSource(nil), s.sources...)
}

// CachedByID looks up a cached record, without a network call.
func (s *DataSourceStore) CachedByID(id int64) (api.DataSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// Loading reports whether an operation is in flight.
func (s *DataSourceStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error message captured by the most recent operation,
// empty when it succeeded.
func (s *DataSourceStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *DataSourceStore) findLocked(id int64) (api.DataSource, bool) {
	for _, ds := range s.sources {
		if ds.ID == id {
			return ds, true
		}
	}
	return api.DataSource{}, false
}

func (s *DataSourceStore) upsertLocked(ds api.DataSource) {
	for i := range s.sources {
		if s.sources[i].ID == ds.ID {
			s.sources[i] = ds
			return
		}
	}
	s.sources = append(s.sources, ds)
}
