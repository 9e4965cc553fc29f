package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"xsmom/pkg/xsmom"
)

const maxRequestBody = 1 << 20

// RegisterRoutes registers the HTTP API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/backtest", s.handleRunBacktest)
	mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *Server) handleRunBacktest(w http.ResponseWriter, r *http.Request) {
	var req xsmom.BacktestRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.metrics.observeRequest("http", "RunBacktest", classInvalid)
		writeError(w, http.StatusBadRequest, "decoding request: "+err.Error())
		return
	}

	run, err := s.svc.RunBacktest(r.Context(), req)
	s.metrics.observeRequest("http", "RunBacktest", outcome(err))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	w.Header().Set("Location", "/api/v1/runs/"+run.ID)
	writeJSON(w, http.StatusCreated, toWire(run, true))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.svc.ListRuns(r.Context(), limit)
	s.metrics.observeRequest("http", "ListRuns", outcome(err))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	list := xsmom.RunList{Runs: make([]xsmom.Run, len(runs))}
	for i := range runs {
		list.Runs[i] = toWire(&runs[i], false)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), r.PathValue("id"))
	s.metrics.observeRequest("http", "GetRun", outcome(err))
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toWire(run, true))
}

// httpStatus maps a service error to its response status.
func httpStatus(err error) int {
	switch outcome(err) {
	case classInvalid:
		return http.StatusBadRequest
	case classNotFound:
		return http.StatusNotFound
	case classNoData:
		return http.StatusUnprocessableEntity
	case classCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v before committing status, so an encoding failure
// still reaches the client as a 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
		w.Header().Del("Location")
		writeError(w, http.StatusInternalServerError, "encoding response: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(xsmom.ErrorResponse{Error: msg})
}
