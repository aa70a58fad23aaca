package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/pipegrid/internal/hcl"
	"github.com/vk/pipegrid/internal/supervisor"
	"github.com/vk/pipegrid/internal/testutil"
)

func statusTestApp(t *testing.T) *App {
	t.Helper()
	dir := testutil.WriteManifests(t, map[string]string{
		"p.hcl": `
			pipeline "p" {
				stage "s" { handler = "noop" }
			}
		`,
	})
	out := &testutil.SafeBuffer{}
	return NewApp(out, testConfig(t, dir, "p"), hcl.NewLoader())
}

func TestStatusServer_DisabledWithoutPort(t *testing.T) {
	t.Parallel()
	a := statusTestApp(t)
	assert.Nil(t, a.startStatusServer())
}

func TestStatusServer_HealthEndpoint(t *testing.T) {
	t.Parallel()
	a := statusTestApp(t)

	rec := httptest.NewRecorder()
	a.healthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "OK")
}

func TestStatusServer_RunStatusEndpoint(t *testing.T) {
	t.Parallel()
	a := statusTestApp(t)

	final, err := a.Supervisor().SubmitWait(context.Background(), "p", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+final.RunID, nil)
	req.SetPathValue("id", final.RunID)
	rec := httptest.NewRecorder()
	a.runStatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got supervisor.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, final.RunID, got.RunID)
	assert.Equal(t, supervisor.StatusCompleted, got.Status)
}

func TestStatusServer_UnknownRunIs404(t *testing.T) {
	t.Parallel()
	a := statusTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/runs/ghost", nil)
	req.SetPathValue("id", "ghost")
	rec := httptest.NewRecorder()
	a.runStatusHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusServer_ResultEndpoint(t *testing.T) {
	t.Parallel()
	a := statusTestApp(t)

	final, err := a.Supervisor().SubmitWait(context.Background(), "p", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/runs/"+final.RunID+"/result", nil)
	req.SetPathValue("id", final.RunID)
	rec := httptest.NewRecorder()
	a.runResultHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
