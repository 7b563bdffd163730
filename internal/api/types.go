package api

import "time"

// DataSource is an uploaded dataset with its time-range metadata.
// Records are immutable server-side once created.
type DataSource struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	RowCount   int64     `json:"row_count"`
	TimeLabel  string    `json:"time_label"`
	ValueLabel string    `json:"value_label"`
	CreatedAt  time.Time `json:"created_at"`
}

// Project groups layers for joint visualization. Layer membership is held
// by the layers themselves (project_id), not embedded here.
type Project struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	LayerCount int       `json:"layer_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Layer binds a project to one datasource's series, with per-layer display
// state. DataSourceID may reference a datasource that no longer exists;
// that is an expected state, not corruption.
type Layer struct {
	ID           int64  `json:"id"`
	ProjectID    int64  `json:"project_id"`
	DataSourceID int64  `json:"data_source_id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	IsVisible    bool   `json:"is_visible"`
	ZIndex       int    `json:"z_index"`
}

// Point is a single sample in a time series.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// TimeSeries is the data payload for a layer or a datasource query.
// An empty Points slice with RowCount 0 is a valid fetched value.
type TimeSeries struct {
	Points    []Point   `json:"points"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	RowCount  int64     `json:"row_count"`
}

// CSVPreview describes a CSV file without persisting it.
type CSVPreview struct {
	RowCount   int64     `json:"row_count"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	TimeLabel  string    `json:"time_label"`
	ValueLabel string    `json:"value_label"`
}

// ToolParam describes one parameter of a tool manifest.
type ToolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolManifest is a capability descriptor served by the tools endpoint.
type ToolManifest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ToolParam `json:"params"`
}
