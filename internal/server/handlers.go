package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadcheck/internal/classify"
	"github.com/sells-group/leadcheck/internal/export"
	"github.com/sells-group/leadcheck/internal/fetcher"
	"github.com/sells-group/leadcheck/internal/model"
	"github.com/sells-group/leadcheck/internal/store"
)

type checkResponse struct {
	RunID string `json:"run_id"`
	model.RunResult
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := s.store.(interface{ Ping(context.Context) error }); ok {
		if err := pinger.Ping(r.Context()); err != nil {
			s.log.Warn("store ping failed", zap.Error(err))
			writeError(s.log, w, http.StatusServiceUnavailable, "store unreachable")
			return
		}
	}
	writeJSON(s.log, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(s.log, w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	th, err := s.formThresholds(r)
	if err != nil {
		writeError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}

	deals, dealsName, err := formTable(r, "deals")
	if err != nil {
		writeError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}
	alignment, alignmentName, err := formTable(r, "alignment")
	if err != nil {
		writeError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}
	leads, leadsName, err := formTable(r, "leads")
	if err != nil {
		writeError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}

	inputs := model.RunInputs{Deals: dealsName, Alignment: alignmentName, Leads: leadsName}
	runID := uuid.New().String()
	if s.store != nil {
		run, err := s.store.CreateRun(r.Context(), inputs)
		if err != nil {
			s.log.Error("create run", zap.Error(err))
			writeError(s.log, w, http.StatusInternalServerError, "persist run")
			return
		}
		runID = run.ID
	}

	outcome, err := classify.New(s.fields, th, s.workers).Run(r.Context(), deals, alignment, leads, nil)
	if err != nil {
		s.failRun(r.Context(), runID, err)
		s.log.Error("classify", zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, err.Error())
		return
	}

	stamp := export.Stamp()
	outDir := filepath.Join(s.outDir, runID)
	if _, err := export.WriteOutcome(outcome, outDir, stamp, s.delimiter); err != nil {
		s.failRun(r.Context(), runID, err)
		s.log.Error("write outcome", zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, "write outcome")
		return
	}

	result := &model.RunResult{
		Total:       outcome.Total(),
		New:         outcome.New.Len(),
		Existing:    outcome.Existing.Len(),
		DoubleCheck: outcome.DoubleCheck.Len(),
		Thresholds:  th,
		DurationMS:  time.Since(start).Milliseconds(),
		OutputDir:   outDir,
	}
	if s.store != nil {
		if err := s.store.SaveOutcome(r.Context(), runID, outcome); err != nil {
			s.log.Error("save outcome", zap.Error(err))
			writeError(s.log, w, http.StatusInternalServerError, "persist outcome")
			return
		}
		if err := s.store.CompleteRun(r.Context(), runID, result); err != nil {
			s.log.Error("complete run", zap.Error(err))
			writeError(s.log, w, http.StatusInternalServerError, "persist run")
			return
		}
	}

	s.log.Info("batch classified",
		zap.String("run_id", runID),
		zap.Int("total", result.Total),
		zap.Int("new", result.New),
		zap.Int("existing", result.Existing),
		zap.Int("double_check", result.DoubleCheck),
	)
	writeJSON(s.log, w, http.StatusOK, checkResponse{RunID: runID, RunResult: *result})
}

// failRun records the failure even when the request context is already
// gone.
func (s *Server) failRun(ctx context.Context, runID string, cause error) {
	if s.store == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FailRun(ctx, runID, cause.Error()); err != nil {
		s.log.Warn("fail run", zap.String("run_id", runID), zap.Error(err))
	}
}

func formTable(r *http.Request, field string) (*model.Table, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", eris.Errorf("%s file is required", field)
	}
	defer file.Close()

	var t *model.Table
	if strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", eris.Wrap(err, field)
		}
		t, err = fetcher.ReadXLSXBytes(data, fetcher.XLSXOptions{})
		if err != nil {
			return nil, "", eris.Wrap(err, field)
		}
		return t, header.Filename, nil
	}
	t, err = fetcher.ReadCSV(file)
	if err != nil {
		return nil, "", eris.Wrap(err, field)
	}
	return t, header.Filename, nil
}

func (s *Server) formThresholds(r *http.Request) (model.Thresholds, error) {
	th := s.thresholds
	for name, dst := range map[string]*int{
		"company_high": &th.CompanyHigh,
		"company_mid":  &th.CompanyMid,
		"domain_high":  &th.DomainHigh,
		"domain_mid":   &th.DomainMid,
	} {
		raw := r.FormValue(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return th, eris.Errorf("invalid %s: %q", name, raw)
		}
		*dst = v
	}
	if err := th.Validate(); err != nil {
		return th, err
	}
	return th, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Errorf("invalid %s: %q", name, raw)
	}
	return v, nil
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(s.log, w, http.StatusServiceUnavailable, "run store disabled")
		return
	}
	var filter store.RunFilter
	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = model.RunStatus(status)
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Limit = limit
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(s.log, w, http.StatusBadRequest, err.Error())
		return
	}
	filter.Offset = offset

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		s.log.Error("list runs", zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, "list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(s.log, w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(s.log, w, http.StatusServiceUnavailable, "run store disabled")
		return
	}
	runID := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(s.log, w, http.StatusNotFound, "run not found")
			return
		}
		s.log.Error("get run", zap.String("run_id", runID), zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, "get run")
		return
	}
	writeJSON(s.log, w, http.StatusOK, run)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(s.log, w, http.StatusServiceUnavailable, "run store disabled")
		return
	}
	d, ok := model.ParseDisposition(chi.URLParam(r, "disposition"))
	if !ok {
		writeError(s.log, w, http.StatusBadRequest, "unknown disposition")
		return
	}
	runID := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), runID)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(s.log, w, http.StatusNotFound, "run not found")
			return
		}
		s.log.Error("get run", zap.String("run_id", runID), zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, "get run")
		return
	}
	t, err := s.store.OutcomeTable(r.Context(), runID, d)
	if err != nil {
		if store.IsNotFound(err) {
			writeError(s.log, w, http.StatusNotFound, "outcome not found")
			return
		}
		s.log.Error("outcome table", zap.String("run_id", runID), zap.Error(err))
		writeError(s.log, w, http.StatusInternalServerError, "outcome table")
		return
	}

	stamp := run.CreatedAt.Format(export.StampLayout)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(export.FileName(d, stamp)))
	if err := export.Write(w, t, s.delimiter); err != nil {
		s.log.Warn("stream outcome", zap.String("run_id", runID), zap.Error(err))
	}
}

func writeJSON(log *zap.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("encode response", zap.Error(err))
	}
}

func writeError(log *zap.Logger, w http.ResponseWriter, status int, msg string) {
	writeJSON(log, w, status, map[string]string{"error": msg})
}
