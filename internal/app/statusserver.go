package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/pipegrid/internal/supervisor"
)

// startStatusServer runs the HTTP status server when a port is
// configured. It exposes liveness plus per-run status and result
// endpoints for progress polling.
func (a *App) startStatusServer() *http.Server {
	if a.config.StatusPort <= 0 {
		a.logger.Debug("Status server not started: disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /runs/{id}", a.runStatusHandler)
	mux.HandleFunc("GET /runs/{id}/result", a.runResultHandler)

	addr := fmt.Sprintf(":%d", a.config.StatusPort)
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		a.logger.Info("Status server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return srv
}

func (a *App) stopStatusServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		a.logger.Error("Status server shutdown failed", "error", err)
		return
	}
	a.logger.Debug("Status server shut down gracefully.")
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) runStatusHandler(w http.ResponseWriter, r *http.Request) {
	rec, err := a.sup.Status(r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, rec)
}

func (a *App) runResultHandler(w http.ResponseWriter, r *http.Request) {
	result, err := a.sup.Result(r.PathValue("id"))
	if err != nil {
		writeStatusError(w, err)
		return
	}
	writeJSON(w, result)
}

func writeStatusError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, supervisor.ErrUnknownRun):
		code = http.StatusNotFound
	case errors.Is(err, supervisor.ErrRunActive):
		code = http.StatusConflict
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
