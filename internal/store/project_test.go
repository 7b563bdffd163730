package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nathanaday/iot-data-core/internal/api"
)

func newProjectFixture(t *testing.T) (*mockGateway, *LayerStore, *ProjectStore) {
	t.Helper()
	gw := new(mockGateway)
	layers := NewLayerStore(gw, testLogger())
	projects := NewProjectStore(gw, layers, testLogger())
	return gw, layers, projects
}

func TestProjectStoreSelection(t *testing.T) {
	t.Run("changing project clears the layer selection", func(t *testing.T) {
		_, layers, s := newProjectFixture(t)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 1}})
		s.SelectProject(1)
		s.SelectLayer(10)
		require.EqualValues(t, 10, s.SelectedLayerID())

		s.SelectProject(2)
		assert.EqualValues(t, 2, s.SelectedProjectID())
		assert.Zero(t, s.SelectedLayerID())
	})

	t.Run("re-selecting the same project keeps the layer selection", func(t *testing.T) {
		_, layers, s := newProjectFixture(t)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 1}})
		s.SelectProject(1)
		s.SelectLayer(10)

		s.SelectProject(1)
		assert.EqualValues(t, 10, s.SelectedLayerID())
	})

	t.Run("clearing the project clears the layer selection", func(t *testing.T) {
		_, layers, s := newProjectFixture(t)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 1}})
		s.SelectProject(1)
		s.SelectLayer(10)

		s.SelectProject(0)
		assert.Zero(t, s.SelectedProjectID())
		assert.Zero(t, s.SelectedLayerID())
	})

	t.Run("layer from another project is rejected", func(t *testing.T) {
		_, layers, s := newProjectFixture(t)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 2}})
		s.SelectProject(1)

		s.SelectLayer(10)
		assert.Zero(t, s.SelectedLayerID())
	})

	t.Run("uncached layer id reads as none until the layer resolves", func(t *testing.T) {
		_, layers, s := newProjectFixture(t)
		s.SelectProject(1)

		s.SelectLayer(77)
		assert.Zero(t, s.SelectedLayerID())

		layers.SetAll([]api.Layer{{ID: 77, ProjectID: 1}})
		assert.EqualValues(t, 77, s.SelectedLayerID())
	})

	t.Run("deleting the selected layer resets the cursor", func(t *testing.T) {
		gw, layers, s := newProjectFixture(t)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 1}, {ID: 11, ProjectID: 1}})
		s.SelectProject(1)
		s.SelectLayer(10)
		require.EqualValues(t, 10, s.SelectedLayerID())

		gw.On("DeleteLayer", mock.Anything, int64(10)).Return(nil).Once()
		require.NoError(t, layers.Delete(context.Background(), 10))

		assert.Zero(t, s.SelectedLayerID(),
			"the cursor must not point at a removed layer")
	})

	t.Run("deleting an unselected layer keeps the cursor", func(t *testing.T) {
		gw, layers, s := newProjectFixture(t)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 1}, {ID: 11, ProjectID: 1}})
		s.SelectProject(1)
		s.SelectLayer(10)

		gw.On("DeleteLayer", mock.Anything, int64(11)).Return(nil).Once()
		require.NoError(t, layers.Delete(context.Background(), 11))

		assert.EqualValues(t, 10, s.SelectedLayerID())
	})
}

func TestProjectStoreDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("deleting the selected project falls back to the first remaining", func(t *testing.T) {
		gw, _, s := newProjectFixture(t)
		gw.On("ListProjects", mock.Anything).Return([]api.Project{{ID: 1}, {ID: 2}, {ID: 3}}, nil).Once()
		_, err := s.ListAll(ctx)
		require.NoError(t, err)
		s.SelectProject(2)
		s.SelectLayer(20)

		gw.On("DeleteProject", mock.Anything, int64(2)).Return(nil).Once()
		require.NoError(t, s.Delete(ctx, 2))

		assert.EqualValues(t, 1, s.SelectedProjectID())
		assert.Zero(t, s.SelectedLayerID())
		assert.Len(t, s.CachedAll(), 2)
	})

	t.Run("deleting the last project clears the selection", func(t *testing.T) {
		gw, _, s := newProjectFixture(t)
		gw.On("ListProjects", mock.Anything).Return([]api.Project{{ID: 1}}, nil).Once()
		_, err := s.ListAll(ctx)
		require.NoError(t, err)
		s.SelectProject(1)

		gw.On("DeleteProject", mock.Anything, int64(1)).Return(nil).Once()
		require.NoError(t, s.Delete(ctx, 1))

		assert.Zero(t, s.SelectedProjectID())
		_, ok := s.CurrentProject()
		assert.False(t, ok)
	})

	t.Run("deleting a project evicts its cached layers", func(t *testing.T) {
		gw, layers, s := newProjectFixture(t)
		gw.On("ListProjects", mock.Anything).Return([]api.Project{{ID: 1}, {ID: 2}}, nil).Once()
		_, err := s.ListAll(ctx)
		require.NoError(t, err)
		layers.SetAll([]api.Layer{{ID: 10, ProjectID: 1}, {ID: 20, ProjectID: 2}})
		layers.PutSeries(10, api.TimeSeries{RowCount: 1})

		gw.On("DeleteProject", mock.Anything, int64(1)).Return(nil).Once()
		require.NoError(t, s.Delete(ctx, 1))

		assert.Empty(t, layers.ByProject(1), "layers of a deleted project are evicted")
		assert.Len(t, layers.ByProject(2), 1, "other projects keep their layers")
		_, ok := layers.CachedData(10)
		assert.False(t, ok, "evicted layers lose their derived data")
	})

	t.Run("deleting an unselected project keeps the selection", func(t *testing.T) {
		gw, _, s := newProjectFixture(t)
		gw.On("ListProjects", mock.Anything).Return([]api.Project{{ID: 1}, {ID: 2}}, nil).Once()
		_, err := s.ListAll(ctx)
		require.NoError(t, err)
		s.SelectProject(1)

		gw.On("DeleteProject", mock.Anything, int64(2)).Return(nil).Once()
		require.NoError(t, s.Delete(ctx, 2))

		assert.EqualValues(t, 1, s.SelectedProjectID())
	})
}

func TestProjectStoreCRUD(t *testing.T) {
	ctx := context.Background()

	t.Run("create appends the confirmed record", func(t *testing.T) {
		gw, _, s := newProjectFixture(t)
		gw.On("CreateProject", mock.Anything, "greenhouse").
			Return(api.Project{ID: 5, Name: "greenhouse"}, nil).Once()

		p, err := s.Create(ctx, "greenhouse")
		require.NoError(t, err)
		assert.EqualValues(t, 5, p.ID)
		_, ok := s.CachedByID(5)
		assert.True(t, ok)
	})

	t.Run("list failure records the message", func(t *testing.T) {
		gw, _, s := newProjectFixture(t)
		gw.On("ListProjects", mock.Anything).Return(nil, errors.New("gateway down")).Once()

		_, err := s.ListAll(ctx)
		require.Error(t, err)
		assert.Contains(t, s.Err(), "gateway down")
	})

	t.Run("layers is a passthrough that leaves the layer cache alone", func(t *testing.T) {
		gw, layers, s := newProjectFixture(t)
		gw.On("ListProjectLayers", mock.Anything, int64(1)).
			Return([]api.Layer{{ID: 10, ProjectID: 1}}, nil).Once()

		got, err := s.Layers(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Empty(t, layers.CachedAll())
	})

	t.Run("current project is resolved against the cache", func(t *testing.T) {
		gw, _, s := newProjectFixture(t)
		gw.On("ListProjects", mock.Anything).Return([]api.Project{{ID: 1, Name: "farm"}}, nil).Once()
		_, err := s.ListAll(ctx)
		require.NoError(t, err)

		s.SelectProject(1)
		p, ok := s.CurrentProject()
		require.True(t, ok)
		assert.Equal(t, "farm", p.Name)

		s.SelectProject(99)
		_, ok = s.CurrentProject()
		assert.False(t, ok)
	})
}
