package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/santiagomed/architect/core"
	"github.com/santiagomed/architect/logger"
	"github.com/santiagomed/architect/report"
)

const maxPromptBytes = 1 << 20

type Options struct {
	// ScriptName is the suggested download name of the artifact.
	ScriptName    string
	DefaultWindow int
	// MaxRuns bounds how many runs are remembered.
	MaxRuns       int
}

const defaultMaxRuns = 100

// Server exposes the engine over HTTP. Runs are kept in memory, at most
// Options.MaxRuns of them.
type Server struct {
	engine *core.Engine
	opts   Options
	logger logger.Logger
	runs   *runStore
	mux    *http.ServeMux
	srv    *http.Server
}

func New(engine *core.Engine, opts Options, l logger.Logger) *Server {
	if l == nil {
		l = logger.NewNullLogger()
	}
	if opts.ScriptName == "" {
		opts.ScriptName = "generated_app.py"
	}
	if opts.MaxRuns < 1 {
		opts.MaxRuns = defaultMaxRuns
	}
	if opts.DefaultWindow < 1 {
		opts.DefaultWindow = core.DefaultMemoryWindow
	}
	s := &Server{
		engine: engine,
		opts:   opts,
		logger: l,
		runs:   newRunStore(opts.MaxRuns),
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("POST /api/runs", s.handleCreateRun)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("DELETE /api/runs/{id}", s.handleCancelRun)
	s.mux.HandleFunc("GET /api/runs/{id}/script", s.handleScript)
	s.mux.HandleFunc("GET /api/runs/{id}/report", s.handleReport)
	s.mux.HandleFunc("GET /api/runs/{id}/bundle", s.handleBundle)
}

func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening on " + addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRunRequest struct {
	Prompt       string `json:"prompt"`
	MemoryWindow *int   `json:"memory_window"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var body createRunRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	prompt := strings.TrimSpace(body.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	window := s.opts.DefaultWindow
	if body.MemoryWindow != nil {
		window = *body.MemoryWindow
	}

	ctx, cancel := context.WithCancel(context.Background())
	rn := &run{
		prompt:    prompt,
		createdAt: time.Now(),
		cancel:    cancel,
		stage:     core.CreatePlan,
	}
	pub := &runPublisher{run: rn, logger: s.logger}

	id, results := s.engine.Submit(ctx, core.NewRequest(prompt, window), pub)
	rn.id = id
	s.runs.put(rn)
	l := s.logger.WithField("run_id", id)
	l.Info("Run submitted")

	go func() {
		res := <-results
		cancel()
		rn.finish(res)
		l.Info(fmt.Sprintf("Run finished with status %s", res.Status()))
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{
		"run_id": id,
		"status": string(core.StatusRunning),
	})
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*run, bool) {
	rn, ok := s.runs.get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
	}
	return rn, ok
}

// ready returns the result of a finished, successful run or writes 409.
func (s *Server) ready(w http.ResponseWriter, rn *run) (core.Result, bool) {
	res, done := rn.finished()
	if !done || res.Status() != core.StatusReady {
		writeError(w, http.StatusConflict, fmt.Sprintf("run %s is not ready", rn.id))
		return core.Result{}, false
	}
	return res, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rn.view())
}

func (s *Server) handleCancelRun(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if _, done := rn.finished(); done {
		writeError(w, http.StatusConflict, fmt.Sprintf("run %s has already finished", rn.id))
		return
	}
	rn.cancel()
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": rn.id, "status": "cancelling"})
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, ok := s.ready(w, rn)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", s.opts.ScriptName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Script()))
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, done := rn.finished()
	if !done {
		writeError(w, http.StatusConflict, fmt.Sprintf("run %s is still running", rn.id))
		return
	}
	html, err := report.HTML(rn.prompt, res)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	res, ok := s.ready(w, rn)
	if !ok {
		return
	}
	files, err := report.Bundle(rn.prompt, res, s.opts.ScriptName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := files.WriteToZip(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "architect-"+rn.id+".zip"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rec.status).
			WithField("duration", time.Since(start).String()).
			Debug("Handled request")
	})
}
