// Package mockapi is an in-memory implementation of the remote
// visualization API, used for local development and wire-level tests.
// It mirrors the documented contract, including the awkward parts: no
// cascade from datasource deletion to layers, 404 on data fetches for
// layers whose datasource is gone.
package mockapi

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nathanaday/iot-data-core/internal/api"
)

// layerPalette is cycled for server-assigned default layer colors.
var layerPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728",
	"#9467bd", "#8c564b", "#e377c2", "#7f7f7f",
}

// Server holds all state behind a single lock. IDs are assigned from one
// counter across entity types.
type Server struct {
	mu          sync.RWMutex
	nextID      int64
	datasources map[int64]api.DataSource
	series      map[int64][]api.Point // keyed by datasource id
	projects    map[int64]api.Project
	layers      map[int64]api.Layer

	engine *gin.Engine
}

// New creates a server with empty state and all routes registered.
func New() *Server {
	s := &Server{
		datasources: make(map[int64]api.DataSource),
		series:      make(map[int64][]api.Point),
		projects:    make(map[int64]api.Project),
		layers:      make(map[int64]api.Layer),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID())

	ds := r.Group("/api/datasources")
	{
		ds.GET("", s.listDataSources)
		ds.POST("", s.uploadDataSource)
		ds.POST("/preview", s.previewCSV)
		ds.GET("/:id", s.getDataSource)
		ds.DELETE("/:id", s.deleteDataSource)
		ds.GET("/:id/data", s.queryDataSourceData)
	}

	pr := r.Group("/api/projects")
	{
		pr.GET("", s.listProjects)
		pr.POST("", s.createProject)
		pr.GET("/:id", s.getProject)
		pr.DELETE("/:id", s.deleteProject)
		pr.GET("/:id/layers", s.listProjectLayers)
		pr.POST("/:id/layers", s.createLayer)
	}

	la := r.Group("/api/layers")
	{
		la.GET("/:id", s.getLayer)
		la.DELETE("/:id", s.deleteLayer)
		la.PUT("/:id/color", s.updateLayerColor)
		la.PUT("/:id/visibility", s.updateLayerVisibility)
		la.POST("/:id/duplicate", s.duplicateLayer)
		la.GET("/:id/data", s.getLayerData)
		la.POST("/:id/load-csv", s.loadLayerCSV)
	}

	r.GET("/api/tools", s.listTools)

	s.engine = r
	return s
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until the listener fails.
func (s *Server) Run(addr string) error { return s.engine.Run(addr) }

// requestID echoes or assigns an X-Request-ID per request.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) allocID() int64 {
	s.nextID++
	return s.nextID
}

func paramID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// parseRange reads optional RFC3339 start_time/end_time query params.
func parseRange(c *gin.Context) (start, end *time.Time, ok bool) {
	if v := c.Query("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start_time"})
			return nil, nil, false
		}
		start = &t
	}
	if v := c.Query("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_time"})
			return nil, nil, false
		}
		end = &t
	}
	return start, end, true
}

func sliceRange(points []api.Point, start, end *time.Time) api.TimeSeries {
	var out []api.Point
	for _, p := range points {
		if start != nil && p.Timestamp.Before(*start) {
			continue
		}
		if end != nil && p.Timestamp.After(*end) {
			continue
		}
		out = append(out, p)
	}
	ts := api.TimeSeries{Points: out, RowCount: int64(len(out))}
	if len(out) > 0 {
		ts.StartTime = out[0].Timestamp
		ts.EndTime = out[len(out)-1].Timestamp
	}
	if ts.Points == nil {
		ts.Points = []api.Point{}
	}
	return ts
}

// --- DataSource handlers ---

func (s *Server) listDataSources(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.DataSource, 0, len(s.datasources))
	for _, ds := range s.datasources {
		out = append(out, ds)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) uploadDataSource(c *gin.Context) {
	parsed, ok := readCSVForm(c)
	if !ok {
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = parsed.filename
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ds := api.DataSource{
		ID:         s.allocID(),
		Name:       name,
		Type:       "csv",
		StartTime:  parsed.start,
		EndTime:    parsed.end,
		RowCount:   int64(len(parsed.points)),
		TimeLabel:  parsed.timeLabel,
		ValueLabel: parsed.valueLabel,
		CreatedAt:  time.Now().UTC(),
	}
	s.datasources[ds.ID] = ds
	s.series[ds.ID] = parsed.points
	c.JSON(http.StatusCreated, ds)
}

func (s *Server) previewCSV(c *gin.Context) {
	parsed, ok := readCSVForm(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, api.CSVPreview{
		RowCount:   int64(len(parsed.points)),
		StartTime:  parsed.start,
		EndTime:    parsed.end,
		TimeLabel:  parsed.timeLabel,
		ValueLabel: parsed.valueLabel,
	})
}

func (s *Server) getDataSource(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasources[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "datasource not found"})
		return
	}
	c.JSON(http.StatusOK, ds)
}

// deleteDataSource does not cascade to layers: a layer may keep pointing
// at a deleted datasource, which clients must treat as expected state.
func (s *Server) deleteDataSource(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.datasources[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "datasource not found"})
		return
	}
	delete(s.datasources, id)
	delete(s.series, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) queryDataSourceData(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	points, ok := s.series[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "datasource not found"})
		return
	}
	c.JSON(http.StatusOK, sliceRange(points, start, end))
}

// --- Project handlers ---

func (s *Server) listProjects(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]api.Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) createProject(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := api.Project{ID: s.allocID(), Name: req.Name, CreatedAt: time.Now().UTC()}
	s.projects[p.ID] = p
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// deleteProject removes the project and its layers.
func (s *Server) deleteProject(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	delete(s.projects, id)
	for lid, l := range s.layers {
		if l.ProjectID == id {
			delete(s.layers, lid)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listProjectLayers(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.projects[id]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	c.JSON(http.StatusOK, s.projectLayersLocked(id))
}

func (s *Server) projectLayersLocked(projectID int64) []api.Layer {
	out := make([]api.Layer, 0)
	for _, l := range s.layers {
		if l.ProjectID == projectID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

func (s *Server) createLayer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "project not found"})
		return
	}
	existing := s.projectLayersLocked(id)
	l := api.Layer{
		ID:        s.allocID(),
		ProjectID: id,
		Name:      req.Name,
		Color:     layerPalette[len(existing)%len(layerPalette)],
		IsVisible: true,
		ZIndex:    len(existing),
	}
	s.layers[l.ID] = l
	p.LayerCount = len(existing) + 1
	s.projects[id] = p
	c.JSON(http.StatusCreated, l)
}

// --- Layer handlers ---

func (s *Server) getLayer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) deleteLayer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	delete(s.layers, id)
	if p, ok := s.projects[l.ProjectID]; ok {
		p.LayerCount = len(s.projectLayersLocked(l.ProjectID))
		s.projects[l.ProjectID] = p
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) updateLayerColor(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Color string `json:"color" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	l.Color = req.Color
	s.layers[id] = l
	c.JSON(http.StatusOK, l)
}

func (s *Server) updateLayerVisibility(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		IsVisible *bool `json:"is_visible" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	l.IsVisible = *req.IsVisible
	s.layers[id] = l
	c.JSON(http.StatusOK, l)
}

// duplicateLayer copies color, visibility and datasource binding under a
// new name, placed on top of the stack.
func (s *Server) duplicateLayer(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		NewName string `json:"new_name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input: " + err.Error()})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	dup := src
	dup.ID = s.allocID()
	dup.Name = req.NewName
	dup.ZIndex = len(s.projectLayersLocked(src.ProjectID))
	s.layers[dup.ID] = dup
	if p, ok := s.projects[src.ProjectID]; ok {
		p.LayerCount++
		s.projects[src.ProjectID] = p
	}
	c.JSON(http.StatusCreated, dup)
}

func (s *Server) getLayerData(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	start, end, ok := parseRange(c)
	if !ok {
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	points, ok := s.series[l.DataSourceID]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "datasource not found"})
		return
	}
	c.JSON(http.StatusOK, sliceRange(points, start, end))
}

// loadLayerCSV creates a datasource from the uploaded file and rebinds
// the layer to it.
func (s *Server) loadLayerCSV(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	parsed, ok := readCSVForm(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.layers[id]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "layer not found"})
		return
	}
	ds := api.DataSource{
		ID:         s.allocID(),
		Name:       parsed.filename,
		Type:       "csv",
		StartTime:  parsed.start,
		EndTime:    parsed.end,
		RowCount:   int64(len(parsed.points)),
		TimeLabel:  parsed.timeLabel,
		ValueLabel: parsed.valueLabel,
		CreatedAt:  time.Now().UTC(),
	}
	s.datasources[ds.ID] = ds
	s.series[ds.ID] = parsed.points
	l.DataSourceID = ds.ID
	s.layers[id] = l
	c.JSON(http.StatusOK, l)
}

// --- Tools ---

var toolManifests = []api.ToolManifest{
	{
		Name:        "downsample",
		Description: "Reduce a series to at most n evenly spaced points",
		Params: []api.ToolParam{
			{Name: "points", Type: "integer", Description: "maximum point count", Required: true},
		},
	},
	{
		Name:        "moving_average",
		Description: "Smooth a series with a sliding window mean",
		Params: []api.ToolParam{
			{Name: "window", Type: "duration", Description: "window width", Required: true},
		},
	},
	{
		Name:        "export_csv",
		Description: "Export the visible layers of a project as CSV",
		Params: []api.ToolParam{
			{Name: "project_id", Type: "integer", Description: "project to export", Required: true},
			{Name: "include_hidden", Type: "boolean", Description: "include invisible layers", Required: false},
		},
	},
}

func (s *Server) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, toolManifests)
}
