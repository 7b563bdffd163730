package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nathanaday/iot-data-core/internal/api"
)

func seedLayers(t *testing.T, s *LayerStore, layers ...api.Layer) {
	t.Helper()
	s.SetAll(layers)
}

func TestLayerStoreWriteThrough(t *testing.T) {
	ctx := context.Background()

	t.Run("color update takes the confirmed record verbatim", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())
		seedLayers(t, s, api.Layer{ID: 1, Name: "temp", Color: "#111111"})

		confirmed := api.Layer{ID: 1, Name: "temp", Color: "#ff0000", ZIndex: 3}
		gw.On("UpdateLayerColor", mock.Anything, int64(1), "#ff0000").Return(confirmed, nil).Once()

		got, err := s.UpdateColor(ctx, 1, "#ff0000")
		require.NoError(t, err)
		assert.Equal(t, confirmed, got)

		cached, ok := s.CachedByID(1)
		require.True(t, ok)
		assert.Equal(t, confirmed, cached, "cache mirrors the server record, not the request")
	})

	t.Run("rejected update leaves the cache unchanged", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())
		seedLayers(t, s, api.Layer{ID: 1, Color: "#111111"})

		gw.On("UpdateLayerColor", mock.Anything, int64(1), "#ff0000").
			Return(api.Layer{}, errors.New("validation failed")).Once()

		_, err := s.UpdateColor(ctx, 1, "#ff0000")
		require.Error(t, err)

		cached, _ := s.CachedByID(1)
		assert.Equal(t, "#111111", cached.Color)
		assert.Contains(t, s.Err(), "validation failed")
	})

	t.Run("visibility update", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())
		seedLayers(t, s, api.Layer{ID: 1, IsVisible: true})

		gw.On("UpdateLayerVisibility", mock.Anything, int64(1), false).
			Return(api.Layer{ID: 1, IsVisible: false}, nil).Once()

		got, err := s.UpdateVisibility(ctx, 1, false)
		require.NoError(t, err)
		assert.False(t, got.IsVisible)
	})
}

func TestLayerStoreDelete(t *testing.T) {
	ctx := context.Background()
	gw := new(mockGateway)
	s := NewLayerStore(gw, testLogger())
	seedLayers(t, s, api.Layer{ID: 1, DataSourceID: 10})
	s.PutSeries(1, api.TimeSeries{RowCount: 5})
	s.Select(1)

	gw.On("DeleteLayer", mock.Anything, int64(1)).Return(nil).Once()
	require.NoError(t, s.Delete(ctx, 1))

	_, ok := s.CachedByID(1)
	assert.False(t, ok)
	_, ok = s.CachedData(1)
	assert.False(t, ok, "delete evicts the cached series")
	_, ok = s.CurrentLayer()
	assert.False(t, ok, "delete clears a matching selection")
}

func TestLayerStoreFetchData(t *testing.T) {
	ctx := context.Background()
	gw := new(mockGateway)
	s := NewLayerStore(gw, testLogger())
	seedLayers(t, s, api.Layer{ID: 1})

	first := api.TimeSeries{RowCount: 2}
	second := api.TimeSeries{RowCount: 9}
	gw.On("GetLayerData", mock.Anything, int64(1), (*time.Time)(nil), (*time.Time)(nil)).Return(first, nil).Once()
	gw.On("GetLayerData", mock.Anything, int64(1), (*time.Time)(nil), (*time.Time)(nil)).Return(second, nil).Once()

	_, err := s.FetchData(ctx, 1, nil, nil)
	require.NoError(t, err)
	got, ok := s.CachedData(1)
	require.True(t, ok)
	assert.EqualValues(t, 2, got.RowCount)

	// A second fetch hits the network and overwrites unconditionally.
	_, err = s.FetchData(ctx, 1, nil, nil)
	require.NoError(t, err)
	got, _ = s.CachedData(1)
	assert.EqualValues(t, 9, got.RowCount)
	gw.AssertExpectations(t)
}

func TestLayerStoreFetchMetadata(t *testing.T) {
	ctx := context.Background()

	t.Run("success caches the record and marks it loaded", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())
		seedLayers(t, s, api.Layer{ID: 1, DataSourceID: 10})

		gw.On("GetDataSource", mock.Anything, int64(10)).
			Return(api.DataSource{ID: 10, Name: "temp"}, nil).Once()

		ds, err := s.FetchMetadata(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, ds)
		assert.Equal(t, "temp", ds.Name)
		assert.Equal(t, MetadataLoaded, s.MetadataState(1))

		cached, ok := s.Metadata(1)
		require.True(t, ok)
		assert.Equal(t, "temp", cached.Name)
	})

	t.Run("404 is an expected absence, not an error", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())
		seedLayers(t, s, api.Layer{ID: 1, DataSourceID: 10})

		gw.On("GetDataSource", mock.Anything, int64(10)).
			Return(api.DataSource{}, notFoundErr("datasource not found")).Once()

		ds, err := s.FetchMetadata(ctx, 1)
		assert.NoError(t, err)
		assert.Nil(t, ds)
		assert.Equal(t, MetadataMissing, s.MetadataState(1))
		assert.Empty(t, s.Err(), "a deleted datasource is not a store failure")
		_, ok := s.Metadata(1)
		assert.False(t, ok)
	})

	t.Run("other failures surface", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())
		seedLayers(t, s, api.Layer{ID: 1, DataSourceID: 10})

		gw.On("GetDataSource", mock.Anything, int64(10)).
			Return(api.DataSource{}, errors.New("connection reset")).Once()

		_, err := s.FetchMetadata(ctx, 1)
		require.Error(t, err)
		assert.Equal(t, MetadataUnknown, s.MetadataState(1))
		assert.Contains(t, s.Err(), "connection reset")
	})

	t.Run("unknown layer id", func(t *testing.T) {
		gw := new(mockGateway)
		s := NewLayerStore(gw, testLogger())

		_, err := s.FetchMetadata(ctx, 42)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not in cache")
	})
}

func TestLayerStoreLoadCSV(t *testing.T) {
	ctx := context.Background()
	gw := new(mockGateway)
	s := NewLayerStore(gw, testLogger())
	seedLayers(t, s, api.Layer{ID: 1, DataSourceID: 10})
	s.PutSeries(1, api.TimeSeries{RowCount: 5})
	gw.On("GetDataSource", mock.Anything, int64(10)).
		Return(api.DataSource{ID: 10}, nil).Once()
	_, err := s.FetchMetadata(ctx, 1)
	require.NoError(t, err)

	file := strings.NewReader("time,value\n2024-01-01T00:00:00Z,1\n")
	rebound := api.Layer{ID: 1, DataSourceID: 11}
	gw.On("LoadLayerCSV", mock.Anything, int64(1), file, "new.csv").Return(rebound, nil).Once()

	got, err := s.LoadCSV(ctx, 1, file, "new.csv")
	require.NoError(t, err)
	assert.EqualValues(t, 11, got.DataSourceID)

	_, ok := s.CachedData(1)
	assert.False(t, ok, "rebinding drops the stale series")
	_, ok = s.Metadata(1)
	assert.False(t, ok, "rebinding drops the stale metadata")
	assert.Equal(t, MetadataUnknown, s.MetadataState(1))
}

func TestLayerStoreSetAll(t *testing.T) {
	gw := new(mockGateway)
	s := NewLayerStore(gw, testLogger())
	seedLayers(t, s, api.Layer{ID: 1}, api.Layer{ID: 2})
	s.PutSeries(1, api.TimeSeries{RowCount: 1})
	s.PutSeries(2, api.TimeSeries{RowCount: 2})
	s.Select(2)

	s.SetAll([]api.Layer{{ID: 1}})

	assert.Len(t, s.CachedAll(), 1)
	_, ok := s.CachedData(1)
	assert.True(t, ok, "series for surviving layers are kept")
	_, ok = s.CachedData(2)
	assert.False(t, ok, "series for evicted layers are dropped")
	_, ok = s.CurrentLayer()
	assert.False(t, ok, "selection of an evicted layer is cleared")
}

func TestLayerStoreMerge(t *testing.T) {
	gw := new(mockGateway)
	s := NewLayerStore(gw, testLogger())
	seedLayers(t, s, api.Layer{ID: 1, Name: "old"}, api.Layer{ID: 2, Name: "keep"})
	s.PutSeries(2, api.TimeSeries{RowCount: 4})

	s.Merge([]api.Layer{{ID: 1, Name: "renamed"}, {ID: 3, Name: "new"}})

	got, _ := s.CachedByID(1)
	assert.Equal(t, "renamed", got.Name)
	_, ok := s.CachedByID(2)
	assert.True(t, ok, "unmatched entries survive a merge")
	_, ok = s.CachedByID(3)
	assert.True(t, ok)
	assert.Len(t, s.CachedAll(), 3)
	_, ok = s.CachedData(2)
	assert.True(t, ok, "merge never evicts derived data")
}

func TestLayerStoreByProject(t *testing.T) {
	gw := new(mockGateway)
	s := NewLayerStore(gw, testLogger())
	seedLayers(t, s,
		api.Layer{ID: 1, ProjectID: 100},
		api.Layer{ID: 2, ProjectID: 200},
		api.Layer{ID: 3, ProjectID: 100},
	)

	got := s.ByProject(100)
	require.Len(t, got, 2)
	assert.EqualValues(t, 1, got[0].ID)
	assert.EqualValues(t, 3, got[1].ID)
	assert.Empty(t, s.ByProject(999))
}
