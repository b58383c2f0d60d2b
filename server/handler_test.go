package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/waterpistol/waterpistol/config"
	"github.com/waterpistol/waterpistol/history"
	"github.com/waterpistol/waterpistol/model"
)

type fakeRuns struct {
	runs       []model.RunSummary
	listErr    error
	visibility map[string]model.Visibility
	setErr     error
}

func (f *fakeRuns) ListRuns() ([]model.RunSummary, error) {
	return f.runs, f.listErr
}

func (f *fakeRuns) SetVisibility(token string, visibility model.Visibility) error {
	if f.setErr != nil {
		return f.setErr
	}
	if _, ok := f.visibility[token]; !ok {
		return history.ErrNotFound
	}
	f.visibility[token] = visibility
	return nil
}

type fakeStarter struct {
	params      map[string]string
	description string
	err         error
}

func (f *fakeStarter) StartRun(params map[string]string, description string) (string, error) {
	f.params = params
	f.description = description
	return "3f1c2a9e", f.err
}

var testSimulation = config.Simulation{
	SimulationClass: "computerdatabase.BasicSimulation",
	Params: []config.Param{
		{Name: "users", Value: "10"},
		{Name: "duration", Value: "60"},
	},
}

func newTestServer(t *testing.T, runs *fakeRuns, starter *fakeStarter) (*echo.Echo, string) {
	t.Helper()
	dir := t.TempDir()
	h := NewHandler(zerolog.Nop(), runs, starter, testSimulation, dir)
	return New(zerolog.Nop(), h), dir
}

func serve(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListRuns(t *testing.T) {
	created := time.Date(2024, 4, 4, 10, 58, 2, 0, time.UTC)
	progress := uint64(7)
	runs := &fakeRuns{runs: []model.RunSummary{
		{Name: "new", Progress: &progress, Active: true, Data: model.NewRunningRecord(map[string]string{})},
		{Name: "old", CreationDate: &created, Data: model.DefaultRecord()},
	}}
	e, _ := newTestServer(t, runs, &fakeStarter{})

	rec := serve(e, http.MethodGet, "/api/testruns", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	require.Equal(t, "new", got[0]["name"])
	require.Nil(t, got[0]["creation_date"])
	require.Equal(t, float64(7), got[0]["progress"])
	require.Equal(t, true, got[0]["active"])
	require.Equal(t, "Running", got[0]["data"].(map[string]any)["status"])
	require.Equal(t, "2024-04-04T10:58:02Z", got[1]["creation_date"])
	require.Nil(t, got[1]["progress"])

	runs.listErr = errors.New("disk on fire")
	rec = serve(e, http.MethodGet, "/api/testruns", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestUpdateVisibility(t *testing.T) {
	runs := &fakeRuns{visibility: map[string]model.Visibility{"abc": model.VisibilityVisible}}
	e, _ := newTestServer(t, runs, &fakeStarter{})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"hide", "/api/testruns/abc", `{"visibility_status":"Hidden"}`, http.StatusOK},
		{"unknown run", "/api/testruns/nope", `{"visibility_status":"Hidden"}`, http.StatusNotFound},
		{"staging area", "/api/testruns/running-abc", `{"visibility_status":"Hidden"}`, http.StatusNotFound},
		{"bad visibility", "/api/testruns/abc", `{"visibility_status":"Gone"}`, http.StatusBadRequest},
		{"missing visibility", "/api/testruns/abc", `{}`, http.StatusBadRequest},
		{"malformed body", "/api/testruns/abc", `{"visibility_status":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodPatch, tt.target, tt.body)
			require.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	require.Equal(t, model.VisibilityHidden, runs.visibility["abc"])

	runs.setErr = errors.New("read-only filesystem")
	rec := serve(e, http.MethodPatch, "/api/testruns/abc", `{"visibility_status":"Visible"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStartRun(t *testing.T) {
	starter := &fakeStarter{}
	e, _ := newTestServer(t, &fakeRuns{}, starter)

	rec := serve(e, http.MethodPost, "/api/run", `{"description":"nightly","custom_params":{"users":"50"}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"name":"3f1c2a9e"}`, rec.Body.String())
	require.Equal(t, "nightly", starter.description)
	require.Equal(t, map[string]string{"users": "50", "duration": "60"}, starter.params)

	rec = serve(e, http.MethodPost, "/api/run", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	starter.err = errors.New("no space left on device")
	rec = serve(e, http.MethodPost, "/api/run", `{}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetConfig(t *testing.T) {
	e, _ := newTestServer(t, &fakeRuns{}, &fakeStarter{})

	rec := serve(e, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"simulation":{
		"simulation_class":"computerdatabase.BasicSimulation",
		"params":[{"name":"users","value":"10"},{"name":"duration","value":"60"}]
	}}`, rec.Body.String())
}

func TestSimulations(t *testing.T) {
	e, dir := newTestServer(t, &fakeRuns{}, &fakeStarter{})

	runDir := filepath.Join(dir, "abc")
	require.NoError(t, os.MkdirAll(filepath.Join(runDir, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "index.html"), []byte("<html>report</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "simulation.log"), []byte("RUN\n"), 0o644))

	rec := serve(e, http.MethodGet, "/simulations/abc/simulation.log", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "RUN\n", rec.Body.String())

	rec = serve(e, http.MethodGet, "/simulations/abc/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "<html>report</html>", rec.Body.String())
	require.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")

	for _, target := range []string{"/simulations/abc/missing.js", "/simulations/abc/js", "/simulations/nope/"} {
		rec = serve(e, http.MethodGet, target, "")
		require.Equal(t, http.StatusNotFound, rec.Code, target)
	}
}

func TestSimulationsRejectsTraversal(t *testing.T) {
	e, _ := newTestServer(t, &fakeRuns{}, &fakeStarter{})

	req := httptest.NewRequest(http.MethodGet, "/simulations/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("*")
	c.SetParamValues("../../etc/passwd")

	h := NewHandler(zerolog.Nop(), &fakeRuns{}, &fakeStarter{}, testSimulation, t.TempDir())
	require.NoError(t, h.Simulations(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e, _ := newTestServer(t, &fakeRuns{}, &fakeStarter{})
	rec := serve(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
