package store

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// ProjectStore caches project records and owns the process-wide selection
// cursor (selected project, selected layer) plus the project load
// pipeline (see loader.go). Changing the selected project always clears
// the selected layer: a layer selection is only meaningful within the
// project it belongs to.
type ProjectStore struct {
	client ProjectAPI
	layers *LayerStore
	log    *zap.Logger

	mu                sync.RWMutex
	projects          []api.Project
	selectedProjectID int64
	selectedLayerID   int64
	layerLoadErrs     map[int64]string
	loading           bool
	lastErr           string
}

// NewProjectStore creates an empty store. The layer store is the sibling
// cache the load pipeline populates; all cross-store access goes through
// its public operations.
func NewProjectStore(client ProjectAPI, layers *LayerStore, log *zap.Logger) *ProjectStore {
	return &ProjectStore{client: client, layers: layers, log: log}
}

func (s *ProjectStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.lastErr = ""
	s.mu.Unlock()
}

// ListAll refreshes the project list from the gateway.
func (s *ProjectStore) ListAll(ctx context.Context) ([]api.Project, error) {
	s.begin()
	list, err := s.client.ListProjects(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return nil, err
	}
	s.projects = list
	return append([]api.Project(nil), list...), nil
}

// GetByID fetches a single project and upserts it into the cache.
func (s *ProjectStore) GetByID(ctx context.Context, id int64) (api.Project, error) {
	s.begin()
	p, err := s.client.GetProject(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Project{}, err
	}
	s.upsertLocked(p)
	return p, nil
}

// Create adds a project and appends the confirmed record.
func (s *ProjectStore) Create(ctx context.Context, name string) (api.Project, error) {
	s.begin()
	p, err := s.client.CreateProject(ctx, name)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return api.Project{}, err
	}
	s.projects = append(s.projects, p)
	return p, nil
}

// Delete removes a project after server confirmation, along with its
// cached layers (the server cascades the deletion, so they are gone
// remotely too). If it was the selection, the first remaining project
// (list order) becomes selected, or none if the list is empty; the layer
// selection is cleared either way.
func (s *ProjectStore) Delete(ctx context.Context, id int64) error {
	s.begin()
	err := s.client.DeleteProject(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return err
	}
	for i, p := range s.projects {
		if p.ID == id {
			s.projects = append(s.projects[:i], s.projects[i+1:]...)
			break
		}
	}
	if s.selectedProjectID == id {
		if len(s.projects) > 0 {
			s.selectedProjectID = s.projects[0].ID
		} else {
			s.selectedProjectID = 0
		}
		s.selectedLayerID = 0
	}

	var survivors []api.Layer
	for _, l := range s.layers.CachedAll() {
		if l.ProjectID != id {
			survivors = append(survivors, l)
		}
	}
	s.layers.SetAll(survivors)
	return nil
}

// Layers fetches a project's layer list from the gateway. Passthrough:
// the layer cache is not mutated.
func (s *ProjectStore) Layers(ctx context.Context, id int64) ([]api.Layer, error) {
	s.begin()
	list, err := s.client.ListProjectLayers(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.lastErr = err.Error()
		return nil, err
	}
	return list, nil
}

// SelectProject moves the project cursor by local lookup; no network
// call. Any change of project id, including to or from none, clears the
// layer selection. Re-selecting the same id leaves it untouched.
func (s *ProjectStore) SelectProject(id int64) {
	s.mu.Lock()
	s.selectProjectLocked(id)
	s.mu.Unlock()
}

func (s *ProjectStore) selectProjectLocked(id int64) {
	if id != s.selectedProjectID {
		s.selectedLayerID = 0
	}
	s.selectedProjectID = id
}

// SelectLayer moves the layer cursor. Zero clears it. A layer known to
// belong to a different project than the selected one is rejected; an
// unknown id is accepted (the layer may not be cached yet mid-load).
func (s *ProjectStore) SelectLayer(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != 0 {
		if l, ok := s.layers.CachedByID(id); ok && l.ProjectID != s.selectedProjectID {
			return
		}
	}
	s.selectedLayerID = id
}

// SelectedProjectID returns the project cursor, zero when none.
func (s *ProjectStore) SelectedProjectID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedProjectID
}

// SelectedLayerID returns the layer cursor, zero when none. The cursor
// reads as set only while it resolves to a cached layer of the selected
// project: a layer that was deleted or evicted reads as no selection.
// The stored id is kept, so a selection made before the layer lands in
// the cache surfaces once it does.
func (s *ProjectStore) SelectedLayerID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedLayerID == 0 {
		return 0
	}
	l, ok := s.layers.CachedByID(s.selectedLayerID)
	if !ok || l.ProjectID != s.selectedProjectID {
		return 0
	}
	return s.selectedLayerID
}

// CurrentProject resolves the selected project in the cached list.
func (s *ProjectStore) CurrentProject() (api.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(s.selectedProjectID)
}

// CachedAll returns a copy of the cached project list.
func (s *ProjectStore) CachedAll() []api.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]api.Project(nil), s.projects...)
}

// CachedByID looks up a cached project. No network call.
func (s *ProjectStore) CachedByID(id int64) (api.Project, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

// LayerLoadErrors returns, per layer id, the error message of layers
// that failed to fetch during the most recent Open. Such layers are not
// in the active layer set; this is how a caller can tell a missing
// layer from one that never existed.
func (s *ProjectStore) LayerLoadErrors() map[int64]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string, len(s.layerLoadErrs))
	for id, msg := range s.layerLoadErrs {
		out[id] = msg
	}
	return out
}

// Loading reports whether an operation is in flight.
func (s *ProjectStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Err returns the error message captured by the most recent operation.
func (s *ProjectStore) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *ProjectStore) findLocked(id int64) (api.Project, bool) {
	for _, p := range s.projects {
		if p.ID == id {
			return p, true
		}
	}
	return api.Project{}, false
}

func (s *ProjectStore) upsertLocked(p api.Project) {
	for i := range s.projects {
		if s.projects[i].ID == p.ID {
			s.projects[i] = p
			return
		}
	}
	s.projects = append(s.projects, p)
}
