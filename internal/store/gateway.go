// Package store holds the in-memory entity caches and the project load
// orchestration that keep client state synchronized with the remote API.
package store

import (
	"context"
	"io"
	"time"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// DataSourceAPI is the slice of the gateway used by DataSourceStore.
type DataSourceAPI interface {
	ListDataSources(ctx context.Context) ([]api.DataSource, error)
	GetDataSource(ctx context.Context, id int64) (api.DataSource, error)
	UploadDataSource(ctx context.Context, file io.Reader, filename, name string) (api.DataSource, error)
	DeleteDataSource(ctx context.Context, id int64) error
	QueryDataSourceData(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error)
	PreviewCSV(ctx context.Context, file io.Reader, filename string) (api.CSVPreview, error)
}

// LayerAPI is the slice of the gateway used by LayerStore. GetDataSource
// is here because layer metadata is the datasource record a layer points
// at, not a layer field.
type LayerAPI interface {
	GetLayer(ctx context.Context, id int64) (api.Layer, error)
	CreateLayer(ctx context.Context, projectID int64, name string) (api.Layer, error)
	DeleteLayer(ctx context.Context, id int64) error
	UpdateLayerColor(ctx context.Context, id int64, color string) (api.Layer, error)
	UpdateLayerVisibility(ctx context.Context, id int64, visible bool) (api.Layer, error)
	DuplicateLayer(ctx context.Context, id int64, newName string) (api.Layer, error)
	GetLayerData(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error)
	LoadLayerCSV(ctx context.Context, id int64, file io.Reader, filename string) (api.Layer, error)
	GetDataSource(ctx context.Context, id int64) (api.DataSource, error)
}

// ProjectAPI is the slice of the gateway used by ProjectStore, including
// the per-layer calls issued by the project load pipeline.
type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]api.Project, error)
	GetProject(ctx context.Context, id int64) (api.Project, error)
	CreateProject(ctx context.Context, name string) (api.Project, error)
	DeleteProject(ctx context.Context, id int64) error
	ListProjectLayers(ctx context.Context, projectID int64) ([]api.Layer, error)
	GetLayer(ctx context.Context, id int64) (api.Layer, error)
	GetLayerData(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error)
}
