package store

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// MetadataStatus is the per-layer datasource metadata state. Absence of a
// cached record is not itself meaningful; the status says whether the
// metadata was never fetched, fetched successfully, or found missing
// server-side (the layer points at a deleted datasource).
type MetadataStatus int

const (
	MetadataUnknown MetadataStatus = iota
	MetadataLoaded
	MetadataMissing
)

// LayerStore caches layer records plus, keyed by layer id, fetched
// time-series payloads and datasource metadata. Series and metadata are
// derived data: discardable and re-fetchable at any time.
type LayerStore struct {
	client LayerAPI
	log    *zap.Logger

	mu         sync.RWMutex
	layers     []api.Layer
	currentID  int64
	series     map[int64]api.TimeSeries
	meta       map[int64]api.DataSource
	metaStatus map[int64]MetadataStatus
	loading    bool
	lastErr    string
}

// NewLayerStore creates an empty store backed by the given gateway.
func NewLayerStore(client LayerAPI, log *zap.Logger) *LayerStore {
	return &LayerStore{
		client:     client,
		log:        log,
		series:     make(map[int64]api.TimeSeries),
		meta:       make(map[int64]api.DataSource),
		metaStatus: make(map[int64]MetadataStatus),
	}
}

func (s *LayerStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

// GetByID fetches a single layer and upserts it into the cache.
func (s *LayerStore) GetByID(ctx context.Context, id int64) (api.Layer, error) {
	s.begin()
	layer, err := s.client.GetLayer(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Layer{}, err
	}
	s.upsertLocked(layer)
	return layer, nil
}

// ByProject filters cached layers by project id. No network call.
func (s *LayerStore) ByProject(projectID int64) []api.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []api.Layer
	for _, l := range s.layers {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	return out
}

// Create adds a layer to a project and appends the confirmed record.
func (s *LayerStore) Create(ctx context.Context, projectID int64, name string) (api.Layer, error) {
	s.begin()
	layer, err := s.client.CreateLayer(ctx, projectID, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Layer{}, err
	}
	s.layers = append(s.layers, layer)
	return layer, nil
}

// Delete removes a layer after server confirmation, along with its cached
// series and metadata. Clears the current-layer pointer if it matched.
func (s *LayerStore) Delete(ctx context.Context, id int64) error {
	s.begin()
	err := s.client.DeleteLayer(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return err
	}
	s.removeLocked(id)
	return nil
}

// UpdateColor is write-through: the cache entry changes only when the
// server confirms, and takes the server's record verbatim.
func (s *LayerStore) UpdateColor(ctx context.Context, id int64, color string) (api.Layer, error) {
	s.begin()
	layer, err := s.client.UpdateLayerColor(ctx, id, color)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Layer{}, err
	}
	s.upsertLocked(layer)
	return layer, nil
}

// UpdateVisibility is write-through, like UpdateColor.
func (s *LayerStore) UpdateVisibility(ctx context.Context, id int64, visible bool) (api.Layer, error) {
	s.begin()
	layer, err := s.client.UpdateLayerVisibility(ctx, id, visible)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Layer{}, err
	}
	s.upsertLocked(layer)
	return layer, nil
}

// Duplicate copies a layer under a new name and appends the new record.
func (s *LayerStore) Duplicate(ctx context.Context, id int64, newName string) (api.Layer, error) {
	s.begin()
	layer, err := s.client.DuplicateLayer(ctx, id, newName)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Layer{}, err
	}
	s.layers = append(s.layers, layer)
	return layer, nil
}

// FetchData always performs a network call and unconditionally overwrites
// the series cache entry on success. Callers wanting cache-first behavior
// check CachedData themselves first.
func (s *LayerStore) FetchData(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error) {
	s.begin()
	ts, err := s.client.GetLayerData(ctx, id, start, end)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.TimeSeries{}, err
	}
	s.series[id] = ts
	return ts, nil
}

// CachedData looks up the series cache. A false return means "not yet
// fetched"; an empty series is a valid cached value.
func (s *LayerStore) CachedData(id int64) (api.TimeSeries, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ts, ok := s.series[id]
	return ts, ok
}

// PutSeries stores a fetched series for a layer id. Used by the project
// load pipeline, which owns its own fetch and error policy.
func (s *LayerStore) PutSeries(id int64, ts api.TimeSeries) {
	s.mu.Lock()
	s.series[id] = ts
	s.mu.Unlock()
}

// FetchMetadata fetches the datasource record a layer currently points
// at. A 404 is an expected outcome (the datasource was deleted): the
// layer is marked MetadataMissing, nothing is cached or logged, and no
// error escapes. Any other failure is captured and returned.
func (s *LayerStore) FetchMetadata(ctx context.Context, id int64) (*api.DataSource, error) {
	s.mu.RLock()
	layer, ok := s.findLocked(id)
	s.mu.RUnlock()
	if !ok {
		err := fmt.Errorf("layer %d not in cache", id)
		s.mu.Lock()
		s.lastErr = err.Error()
		s.mu.Unlock()
		return nil, err
	}

	s.begin()
	ds, err := s.client.GetDataSource(ctx, layer.DataSourceID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		if api.IsNotFound(err) {
			s.metaStatus[id] = MetadataMissing
			delete(s.meta, id)
			return nil, nil
		}
		s.lastErr = err.Error()
		return nil, err
	}
	s.meta[id] = ds
	s.metaStatus[id] = MetadataLoaded
	return &ds, nil
}

// Metadata returns the cached datasource metadata for a layer id.
func (s *LayerStore) Metadata(id int64) (api.DataSource, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.meta[id]
	return ds, ok
}

// MetadataState returns the tri-state metadata status for a layer id.
func (s *LayerStore) MetadataState(id int64) MetadataStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metaStatus[id]
}

// LoadCSV uploads a CSV into a layer. The confirmed record replaces the
// cache entry; the layer's cached series and metadata are dropped since
// the binding changed.
func (s *LayerStore) LoadCSV(ctx context.Context, id int64, file io.Reader, filename string) (api.Layer, error) {
	s.begin()
	layer, err := s.client.LoadLayerCSV(ctx, id, file, filename)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Layer{}, err
	}
	s.upsertLocked(layer)
	delete(s.series, id)
	delete(s.meta, id)
	s.metaStatus[id] = MetadataUnknown
	return layer, nil
}

// SetAll replaces the layer collection wholesale. Series and metadata
// entries for ids no longer present are evicted, and the current-layer
// pointer is cleared if its layer is gone.
func (s *LayerStore) SetAll(layers []api.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layers = append([]api.Layer(nil), layers...)

	present := make(map[int64]bool, len(layers))
	for _, l := range layers {
		present[l.ID] = true
	}
	for id := range s.series {
		if !present[id] {
			delete(s.series, id)
		}
	}
	for id := range s.meta {
		if !present[id] {
			delete(s.meta, id)
		}
	}
	for id := range s.metaStatus {
		if !present[id] {
			delete(s.metaStatus, id)
		}
	}
	if s.currentID != 0 && !present[s.currentID] {
		s.currentID = 0
	}
}

// Merge upserts the given layers by id, preserving unmatched existing
// entries.
func (s *LayerStore) Merge(layers []api.Layer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range layers {
		s.upsertLocked(l)
	}
}

// Select marks a layer as current. Zero clears it.
func (s *LayerStore) Select(id int64) {
	s.mu.Lock()
	s.currentID = id
	s.mu.Unlock()
}

// CurrentLayer returns the current layer, if cached.
func (s *LayerStore) CurrentLayer() (api.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(s.currentID)
}

// CachedAll returns a copy of the cached layer list.
func (s *LayerStore) CachedAll() []api.Layer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Layer(nil), s.layers...)
}

// CachedByID looks up a cached layer. No network call.
func (s *LayerStore) CachedByID(id int64) (api.Layer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// Loading reports whether an operation is in flight.
func (s *LayerStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error message captured by the most recent operation.
func (s *LayerStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *LayerStore) findLocked(id int64) (api.Layer, bool) {
	for _, l := range s.layers {
		if l.ID == id {
			return l, true
		}
	}
	return api.Layer{}, false
}

func (s *LayerStore) upsertLocked(layer api.Layer) {
	for i := range s.layers {
		if s.layers[i].ID == layer.ID {
			s.layers[i] = layer
			return
		}
	}
	s.layers = append(s.layers, layer)
}

func (s *LayerStore) removeLocked(id int64) {
	for i, l := range s.layers {
		if l.ID == id {
			s.layers = append(s.layers[:i], s.layers[i+1:]...)
			break
		}
	}
	delete(s.series, id)
	delete(s.meta, id)
	delete(s.metaStatus, id)
	if s.currentID == id {
		s.currentID = 0
	}
}
