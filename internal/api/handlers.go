package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/export"
	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
)

type extractResponse struct {
	Success        bool   `json:"success"`
	ExtractedCount int    `json:"extractedCount"`
	Message        string `json:"message"`
}

type generateResponse struct {
	Success      bool   `json:"success"`
	UpdatedCount int    `json:"updatedCount"`
	Message      string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

// writePipelineError reports a failed pipeline call. Every failure of the
// pipeline endpoints is a 500 with the error text, validation included.
func writePipelineError(w http.ResponseWriter, op string, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		zap.L().Info("api: rejected request", zap.String("operation", op), zap.String("reason", ve.Msg))
	} else {
		zap.L().Error("api: pipeline failed", zap.String("operation", op), zap.Error(err))
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return model.NewValidationError("Invalid request body: " + err.Error())
	}
	return nil
}

// handleExtract runs an extraction batch. The batch is detached from the
// request context so a client disconnect does not abandon it half way.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extract.Request
	if err := decodeBody(w, r, &req); err != nil {
		writePipelineError(w, "extract", err)
		return
	}

	res, err := s.extractor.Run(context.WithoutCancel(r.Context()), req)
	if err != nil {
		writePipelineError(w, "extract", err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{
		Success:        true,
		ExtractedCount: res.ExtractedCount,
		Message:        res.Message(),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generate.Request
	if err := decodeBody(w, r, &req); err != nil {
		writePipelineError(w, "generate", err)
		return
	}

	res, err := s.generator.Run(context.WithoutCancel(r.Context()), req)
	if err != nil {
		writePipelineError(w, "generate", err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{
		Success:      true,
		UpdatedCount: res.UpdatedCount,
		Message:      res.Message(),
	})
}

// leadFilter reads status, search, limit and offset from the query string.
func leadFilter(r *http.Request) (store.LeadFilter, error) {
	q := r.URL.Query()
	f := store.LeadFilter{Search: q.Get("search")}

	if v := q.Get("status"); v != "" && v != "all" {
		status := model.LeadStatus(v)
		if !status.Valid() {
			return f, errors.New("invalid status " + strconv.Quote(v))
		}
		f.Status = status
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		v := q.Get(p.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("invalid " + p.key + " " + strconv.Quote(v))
		}
		*p.dst = n
	}
	return f, nil
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	f, err := leadFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	leads, err := s.store.ListLeads(r.Context(), f)
	if err != nil {
		zap.L().Error("api: list leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list leads")
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "leads": leads})
}

func (s *Server) handleLeadStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.LeadStats(r.Context())
	if err != nil {
		zap.L().Error("api: lead stats", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lead stats")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) handleMarkSent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sent := model.LeadStatusSent

	err := s.store.UpdateLead(r.Context(), id, store.LeadUpdate{Status: &sent})
	if errors.Is(err, store.ErrNotUpdated) {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}
	if err != nil {
		zap.L().Error("api: mark lead sent", zap.String("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to update lead")
		return
	}

	lead, err := s.store.GetLead(r.Context(), id)
	if err != nil {
		zap.L().Error("api: reload lead", zap.String("lead_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load lead")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "lead": lead})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := leadFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, err := export.Collect(r.Context(), s.store, f)
	if err != nil {
		zap.L().Error("api: export leads", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export leads")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	if err := export.Write(w, format, leads); err != nil {
		zap.L().Error("api: write export", zap.Error(err))
	}
}

func (s *Server) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	templates, err := generate.Builtins()
	if err != nil {
		zap.L().Error("api: load templates", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load templates")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "templates": templates})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zap.L().Warn("api: health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
