package planserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tailscale.com/tsweb"

	"github.com/banshee-data/riskplan/internal/httputil"
	"github.com/banshee-data/riskplan/internal/planner"
	"github.com/banshee-data/riskplan/internal/report"
	"github.com/banshee-data/riskplan/internal/runlog"
	"github.com/banshee-data/riskplan/internal/version"
)

const maxRequestBody = 4 << 20

// AdminMux builds the admin HTTP surface: the tsweb debug index (with a SQL
// console when a run log is attached), prometheus metrics, the run list,
// per-run reports and a JSON evaluate endpoint.
func (s *Server) AdminMux() (*http.ServeMux, error) {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)
	debug.KV("Version", version.String())

	if s.store != nil {
		if err := s.store.AttachAdminRoutes(mux); err != nil {
			return nil, err
		}
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/evaluate", s.handleEvaluate)
	mux.HandleFunc("/runs", s.handleRuns)
	mux.HandleFunc("/runs/report", s.handleRunReport)
	mux.HandleFunc("/runs/csv", s.handleRunsCSV)
	return mux, nil
}

// ServeAdmin serves the admin mux on addr until ctx is done.
func (s *Server) ServeAdmin(ctx context.Context, addr string) error {
	mux, err := s.AdminMux()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logf("HTTP server shutdown error: %v", err)
		}
	}()

	logf("HTTP admin listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req EvaluateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	resp, err := s.Handle(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err, ErrBadRequest, planner.ErrInvalidConfig)
		return
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		httputil.NotFound(w, "run log disabled")
		return false
	}
	return true
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	if !s.requireStore(w) {
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		v, err := strconv.Atoi(l)
		if err != nil || v < 0 {
			httputil.BadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = v
	}
	runs, err := s.store.List(limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	for _, run := range runs {
		run.DetailJSON = nil
	}
	httputil.WriteJSONOK(w, runs)
}

func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		httputil.BadRequest(w, "id is required")
		return
	}
	d, err := s.store.Detail(id)
	if errors.Is(err, runlog.ErrNotFound) {
		httputil.NotFound(w, fmt.Sprintf("run %q not found", id))
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, d.Scene, d.Result, report.Options{Units: r.URL.Query().Get("units")}); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleRunsCSV(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	var ids []string
	if id := r.URL.Query().Get("id"); id != "" {
		ids = append(ids, id)
	}
	var buf bytes.Buffer
	if err := s.store.ExportCSV(&buf, ids...); err != nil {
		if errors.Is(err, runlog.ErrNotFound) {
			httputil.NotFound(w, err.Error())
			return
		}
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write(buf.Bytes())
}
