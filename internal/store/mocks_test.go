package store

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// mockGateway implements DataSourceAPI, LayerAPI and ProjectAPI so one
// instance can back every store in a test.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) ListDataSources(ctx context.Context) ([]api.DataSource, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.DataSource), args.Error(1)
}

func (m *mockGateway) GetDataSource(ctx context.Context, id int64) (api.DataSource, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(api.DataSource), args.Error(1)
}

func (m *mockGateway) UploadDataSource(ctx context.Context, file io.Reader, filename, name string) (api.DataSource, error) {
	args := m.Called(ctx, file, filename, name)
	return args.Get(0).(api.DataSource), args.Error(1)
}

func (m *mockGateway) DeleteDataSource(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGateway) QueryDataSourceData(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error) {
	args := m.Called(ctx, id, start, end)
	return args.Get(0).(api.TimeSeries), args.Error(1)
}

func (m *mockGateway) PreviewCSV(ctx context.Context, file io.Reader, filename string) (api.CSVPreview, error) {
	args := m.Called(ctx, file, filename)
	return args.Get(0).(api.CSVPreview), args.Error(1)
}

func (m *mockGateway) GetLayer(ctx context.Context, id int64) (api.Layer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(api.Layer), args.Error(1)
}

func (m *mockGateway) CreateLayer(ctx context.Context, projectID int64, name string) (api.Layer, error) {
	args := m.Called(ctx, projectID, name)
	return args.Get(0).(api.Layer), args.Error(1)
}

func (m *mockGateway) DeleteLayer(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGateway) UpdateLayerColor(ctx context.Context, id int64, color string) (api.Layer, error) {
	args := m.Called(ctx, id, color)
	return args.Get(0).(api.Layer), args.Error(1)
}

func (m *mockGateway) UpdateLayerVisibility(ctx context.Context, id int64, visible bool) (api.Layer, error) {
	args := m.Called(ctx, id, visible)
	return args.Get(0).(api.Layer), args.Error(1)
}

func (m *mockGateway) DuplicateLayer(ctx context.Context, id int64, newName string) (api.Layer, error) {
	args := m.Called(ctx, id, newName)
	return args.Get(0).(api.Layer), args.Error(1)
}

func (m *mockGateway) GetLayerData(ctx context.Context, id int64, start, end *time.Time) (api.TimeSeries, error) {
	args := m.Called(ctx, id, start, end)
	return args.Get(0).(api.TimeSeries), args.Error(1)
}

func (m *mockGateway) LoadLayerCSV(ctx context.Context, id int64, file io.Reader, filename string) (api.Layer, error) {
	args := m.Called(ctx, id, file, filename)
	return args.Get(0).(api.Layer), args.Error(1)
}

func (m *mockGateway) ListProjects(ctx context.Context) ([]api.Project, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Project), args.Error(1)
}

func (m *mockGateway) GetProject(ctx context.Context, id int64) (api.Project, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(api.Project), args.Error(1)
}

func (m *mockGateway) CreateProject(ctx context.Context, name string) (api.Project, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(api.Project), args.Error(1)
}

func (m *mockGateway) DeleteProject(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockGateway) ListProjectLayers(ctx context.Context, projectID int64) ([]api.Layer, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.Layer), args.Error(1)
}

// notFoundErr builds the gateway error shape for a server 404.
func notFoundErr(msg string) *api.Error {
	return &api.Error{
		Kind:       api.KindServer,
		StatusCode: http.StatusNotFound,
		StatusText: http.StatusText(http.StatusNotFound),
		Message:    msg,
	}
}

func testLogger() *zap.Logger { return zap.NewNop() }
