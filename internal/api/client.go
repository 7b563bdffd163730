package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout is the client-side deadline applied to every request
// unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// Client is a typed gateway over the remote visualization API. It makes
// exactly one attempt per call; retry policy belongs to the caller.
type Client struct {
	base string
	hc   *http.Client
}

// Option configures a Client at construction.
type Option func(*Client)

// WithTimeout overrides the default request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.hc.Timeout = d }
}

// WithHTTPClient replaces the underlying http.Client. The configured
// timeout is preserved on the replacement unless it sets its own.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc.Timeout == 0 {
			hc.Timeout = c.hc.Timeout
		}
		c.hc = hc
	}
}

// New creates a client for the API served at base, e.g. "http://localhost:8080".
func New(base string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimSuffix(base, "/"),
		hc:   &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// do performs one request. A non-nil body is sent as JSON; a non-nil out
// receives the decoded response body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return requestError(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return requestError(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

// doMultipart uploads file as multipart/form-data under the field "file",
// with an optional "name" field.
func (c *Client) doMultipart(ctx context.Context, path string, file io.Reader, filename, name string, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return requestError(err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return requestError(err)
	}
	if name != "" {
		if err := w.WriteField("name", name); err != nil {
			return requestError(err)
		}
	}
	if err := w.Close(); err != nil {
		return requestError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path, nil), &buf)
	if err != nil {
		return requestError(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.hc.Do(req)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return timeoutError(err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return timeoutError(err)
		}
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body struct {
			Error string `json:"error"`
		}
		// Best effort: a non-parseable body falls back to the status text.
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return serverError(resp.StatusCode, body.Error)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			StatusText: http.StatusText(resp.StatusCode),
			Message:    fmt.Sprintf("malformed response body: %v", err),
		}
	}
	return nil
}

func rangeQuery(start, end *time.Time) url.Values {
	q := url.Values{}
	if start != nil {
		q.Set("start_time", start.Format(time.RFC3339))
	}
	if end != nil {
		q.Set("end_time", end.Format(time.RFC3339))
	}
	return q
}

// --- DataSources ---

func (c *Client) ListDataSources(ctx context.Context) ([]DataSource, error) {
	var out []DataSource
	err := c.do(ctx, http.MethodGet, "/api/datasources", nil, nil, &out)
	return out, err
}

func (c *Client) GetDataSource(ctx context.Context, id int64) (DataSource, error) {
	var out DataSource
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/datasources/%d", id), nil, nil, &out)
	return out, err
}

// UploadDataSource posts a CSV file. The optional name overrides the
// filename-derived name on the server.
func (c *Client) UploadDataSource(ctx context.Context, file io.Reader, filename, name string) (DataSource, error) {
	var out DataSource
	err := c.doMultipart(ctx, "/api/datasources", file, filename, name, &out)
	return out, err
}

func (c *Client) DeleteDataSource(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/datasources/%d", id), nil, nil, nil)
}

// QueryDataSourceData fetches a datasource's series, optionally bounded
// to [start, end]. Nil bounds mean unbounded.
func (c *Client) QueryDataSourceData(ctx context.Context, id int64, start, end *time.Time) (TimeSeries, error) {
	var out TimeSeries
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/datasources/%d/data", id), rangeQuery(start, end), nil, &out)
	return out, err
}

// PreviewCSV describes a CSV file without persisting anything server-side.
func (c *Client) PreviewCSV(ctx context.Context, file io.Reader, filename string) (CSVPreview, error) {
	var out CSVPreview
	err := c.doMultipart(ctx, "/api/datasources/preview", file, filename, "", &out)
	return out, err
}

// --- Projects ---

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, nil, &out)
	return out, err
}

func (c *Client) CreateProject(ctx context.Context, name string) (Project, error) {
	var out Project
	body := map[string]string{"name": name}
	err := c.do(ctx, http.MethodPost, "/api/projects", nil, body, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (Project, error) {
	var out Project
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d", id), nil, nil, &out)
	return out, err
}

func (c *Client) DeleteProject(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/projects/%d", id), nil, nil, nil)
}

func (c *Client) ListProjectLayers(ctx context.Context, projectID int64) ([]Layer, error) {
	var out []Layer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/projects/%d/layers", projectID), nil, nil, &out)
	return out, err
}

func (c *Client) CreateLayer(ctx context.Context, projectID int64, name string) (Layer, error) {
	var out Layer
	body := map[string]string{"name": name}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/projects/%d/layers", projectID), nil, body, &out)
	return out, err
}

// --- Layers ---

func (c *Client) GetLayer(ctx context.Context, id int64) (Layer, error) {
	var out Layer
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/layers/%d", id), nil, nil, &out)
	return out, err
}

func (c *Client) DeleteLayer(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/layers/%d", id), nil, nil, nil)
}

func (c *Client) UpdateLayerColor(ctx context.Context, id int64, color string) (Layer, error) {
	var out Layer
	body := map[string]string{"color": color}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/layers/%d/color", id), nil, body, &out)
	return out, err
}

func (c *Client) UpdateLayerVisibility(ctx context.Context, id int64, visible bool) (Layer, error) {
	var out Layer
	body := map[string]bool{"is_visible": visible}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/layers/%d/visibility", id), nil, body, &out)
	return out, err
}

func (c *Client) DuplicateLayer(ctx context.Context, id int64, newName string) (Layer, error) {
	var out Layer
	body := map[string]string{"new_name": newName}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/layers/%d/duplicate", id), nil, body, &out)
	return out, err
}

func (c *Client) GetLayerData(ctx context.Context, id int64, start, end *time.Time) (TimeSeries, error) {
	var out TimeSeries
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/layers/%d/data", id), rangeQuery(start, end), nil, &out)
	return out, err
}

// LoadLayerCSV uploads a CSV directly into a layer, creating or replacing
// its datasource binding server-side.
func (c *Client) LoadLayerCSV(ctx context.Context, id int64, file io.Reader, filename string) (Layer, error) {
	var out Layer
	err := c.doMultipart(ctx, fmt.Sprintf("/api/layers/%d/load-csv", id), file, filename, "", &out)
	return out, err
}

// --- Tools ---

func (c *Client) ListToolManifests(ctx context.Context) ([]ToolManifest, error) {
	var out []ToolManifest
	err := c.do(ctx, http.MethodGet, "/api/tools", nil, nil, &out)
	return out, err
}
