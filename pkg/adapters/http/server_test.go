package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aretw0/conduit/internal/pipelines"
	"github.com/aretw0/conduit/pkg/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCatalog struct{}

func (stubCatalog) Names() []string { return pipelines.Names() }

func (stubCatalog) Definition(name string) (*model.Definition, error) {
	def, err := pipelines.Build(name, pipelines.IO{})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return def, nil
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "conduit_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()
	return NewHandler(&Server{Catalog: stubCatalog{}, Gatherer: reg, Version: "9.9.9\n"})
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_Health(t *testing.T) {
	w := get(t, newTestHandler(t), "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "9.9.9", body["version"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_Definitions(t *testing.T) {
	h := newTestHandler(t)

	w := get(t, h, "/definitions")
	require.Equal(t, http.StatusOK, w.Code)
	var names []string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &names))
	assert.Equal(t, []string{"echo", "sqrt"}, names)

	w = get(t, h, "/definitions/sqrt")
	require.Equal(t, http.StatusOK, w.Code)
	var def struct {
		Blocks      []json.RawMessage `json:"blocks"`
		Connections []json.RawMessage `json:"connections"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &def))
	assert.Len(t, def.Blocks, 3)
	assert.Len(t, def.Connections, 2)

	w = get(t, h, "/definitions/echo/mermaid")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph LR"))

	w = get(t, h, "/definitions/missing")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "definition not found")
}

func TestHandler_Metrics(t *testing.T) {
	w := get(t, newTestHandler(t), "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "conduit_test_total 1")
}

func TestHandler_Preflight(t *testing.T) {
	req := httptest.NewRequest("OPTIONS", "/definitions", nil)
	w := httptest.NewRecorder()
	newTestHandler(t).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
