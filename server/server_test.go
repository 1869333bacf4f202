package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlan = `{"plan": [{"section_name": "Imports", "description": "import os"}, {"section_name": "Main", "description": "print the cwd"}]}`

// fakeClient answers by looking at which component is calling.
type fakeClient struct {
	plan      string
	blockPlan bool
}

func (c *fakeClient) GetCompletion(ctx context.Context, system, user string) (string, error) {
	switch {
	case strings.Contains(system, "software architect"):
		if c.blockPlan {
			<-ctx.Done()
			return "", ctx.Err()
		}
		return c.plan, nil
	case strings.Contains(system, "code reviewer"):
		return "import os\nprint(os.getcwd())", nil
	case strings.Contains(system, "compress finished code"):
		return "summary", nil
	default:
		return "```python\nimport os\n```", nil
	}
}

func newTestServer(t *testing.T, client llm.LlmClient) *httptest.Server {
	t.Helper()
	engine := core.NewEngine(func(ctx context.Context, runID string) (llm.LlmClient, error) {
		return client, nil
	}, nil, 2)
	ctx, cancel := context.WithCancel(context.Background())
	engine.Start(ctx)

	ts := httptest.NewServer(New(engine, Options{}, nil).Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		engine.Shutdown(time.Second)
	})
	return ts
}

func createRun(t *testing.T, ts *httptest.Server, body string) string {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/runs", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "running", out["status"])
	require.NotEmpty(t, out["run_id"])
	return out["run_id"]
}

func getView(t *testing.T, ts *httptest.Server, id string) runView {
	t.Helper()
	resp, err := http.Get(ts.URL + "/api/runs/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var raw map[string]interface{}
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, &raw))

	v := runView{
		RunID:         raw["run_id"].(string),
		Status:        core.Status(raw["status"].(string)),
		SectionsDone:  int(raw["sections_done"].(float64)),
		SectionsTotal: int(raw["sections_total"].(float64)),
		Refined:       raw["refined"].(bool),
	}
	if s, ok := raw["script"].(string); ok {
		v.Script = s
	}
	if s, ok := raw["error"].(string); ok {
		v.Error = s
	}
	if s, ok := raw["raw_response"].(string); ok {
		v.RawResponse = s
	}
	return v
}

func waitFor(t *testing.T, ts *httptest.Server, id string, status core.Status) runView {
	t.Helper()
	var v runView
	require.Eventually(t, func() bool {
		v = getView(t, ts, id)
		return v.Status == status
	}, 2*time.Second, 10*time.Millisecond)
	return v
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeClient{plan: testPlan})
	resp, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status": "ok"}`, string(body))
}

func TestCreateRun_RequiresPrompt(t *testing.T) {
	ts := newTestServer(t, &fakeClient{plan: testPlan})

	for _, body := range []string{`{"prompt": "  "}`, `{}`, `not json`} {
		resp, err := http.Post(ts.URL+"/api/runs", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestRun_Ready(t *testing.T) {
	ts := newTestServer(t, &fakeClient{plan: testPlan})
	id := createRun(t, ts, `{"prompt": "print the working directory", "memory_window": 1}`)

	v := waitFor(t, ts, id, core.StatusReady)
	assert.Equal(t, "import os\nprint(os.getcwd())\n", v.Script)
	assert.True(t, v.Refined)
	assert.Equal(t, 2, v.SectionsDone)
	assert.Equal(t, 2, v.SectionsTotal)

	resp, body := get(t, ts.URL+"/api/runs/"+id+"/script")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="generated_app.py"`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, v.Script, string(body))

	resp, body = get(t, ts.URL+"/api/runs/"+id+"/report")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "<h2>Plan</h2>")

	resp, body = get(t, ts.URL+"/api/runs/"+id+"/bundle")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"generated_app.py", "plan.json", "REPORT.md"}, names)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRun_PlanParseFailure(t *testing.T) {
	ts := newTestServer(t, &fakeClient{plan: "Sure! Here is a plan: imports, then main."})
	id := createRun(t, ts, `{"prompt": "anything"}`)

	v := waitFor(t, ts, id, core.StatusFailed)
	assert.Equal(t, "Sure! Here is a plan: imports, then main.", v.RawResponse)
	assert.NotEmpty(t, v.Error)
	assert.Empty(t, v.Script)

	resp, _ := get(t, ts.URL+"/api/runs/"+id+"/script")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRun_Cancel(t *testing.T) {
	ts := newTestServer(t, &fakeClient{plan: testPlan, blockPlan: true})
	id := createRun(t, ts, `{"prompt": "anything"}`)

	resp, _ := get(t, ts.URL+"/api/runs/"+id+"/script")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/runs/"+id, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	v := waitFor(t, ts, id, core.StatusFailed)
	assert.Contains(t, v.Error, "context canceled")
	assert.Empty(t, v.Script)
}

func TestUnknownRun(t *testing.T) {
	ts := newTestServer(t, &fakeClient{plan: testPlan})
	for _, path := range []string{"", "/script", "/report", "/bundle"} {
		resp, _ := get(t, ts.URL+"/api/runs/does-not-exist"+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func finishedRun(id string) *run {
	r := &run{id: id, createdAt: time.Now()}
	r.finish(core.Result{RunID: id, Stage: core.Done})
	return r
}

func TestRunStore_EvictsOldestFinished(t *testing.T) {
	store := newRunStore(2)

	inFlight := &run{id: "running", createdAt: time.Now()}
	store.put(inFlight)
	store.put(finishedRun("a"))
	store.put(finishedRun("b"))
	store.put(finishedRun("c"))

	assert.Equal(t, 2, store.count())
	_, ok := store.get("running")
	assert.True(t, ok, "runs in flight are kept")
	_, ok = store.get("a")
	assert.False(t, ok)
	_, ok = store.get("b")
	assert.False(t, ok)
	_, ok = store.get("c")
	assert.True(t, ok)
}

func TestRunStore_KeepsRunsInFlight(t *testing.T) {
	store := newRunStore(1)
	store.put(&run{id: "x"})
	store.put(&run{id: "y"})

	assert.Equal(t, 2, store.count())
}
