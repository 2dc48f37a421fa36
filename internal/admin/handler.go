// Package admin serves the database maintenance endpoints under /api/db.
package admin

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/diagnose"
	"github.com/HerbHall/grandline/internal/scripts"
	"github.com/HerbHall/grandline/internal/server"
)

// ScriptRunner executes seed scripts.
type ScriptRunner interface {
	Execute(ctx context.Context, fileNames []string) (*scripts.Report, error)
	Available() ([]string, error)
}

// Diagnoser produces database health reports.
type Diagnoser interface {
	Diagnose(ctx context.Context) *diagnose.Report
}

// Handler serves /api/db. Every route is wrapped by protect.
type Handler struct {
	runner    ScriptRunner
	diagnoser Diagnoser
	responder *server.Responder
	protect   func(http.Handler) http.Handler
	logger    *zap.Logger
}

// NewHandler creates an admin Handler.
func NewHandler(runner ScriptRunner, diag Diagnoser, rs *server.Responder, protect func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{runner: runner, diagnoser: diag, responder: rs, protect: protect, logger: logger.Named("admin")}
}

// RegisterRoutes implements server.RouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/db/execute-sql", h.protect(http.HandlerFunc(h.handleExecuteSQL)))
	mux.Handle("GET /api/db/diagnose", h.protect(http.HandlerFunc(h.handleDiagnose)))
	mux.Handle("GET /api/db/scripts", h.protect(http.HandlerFunc(h.handleListScripts)))
}

// ExecuteRequest is the body of POST /api/db/execute-sql.
type ExecuteRequest struct {
	FileNames []string `json:"fileNames"`
}

// handleExecuteSQL godoc
//
//	@Summary		Run seed scripts
//	@Description	Runs each named file from scripts/sql in its own transaction. success is false when any file failed; per-file outcomes are in data.results.
//	@Tags			database
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body body ExecuteRequest true "Files to run, in order"
//	@Success		200 {object} server.Envelope{data=scripts.Report}
//	@Failure		400 {object} server.Envelope
//	@Failure		401 {object} server.Envelope
//	@Failure		503 {object} server.Envelope
//	@Router			/db/execute-sql [post]
func (h *Handler) handleExecuteSQL(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if err := server.Decode(w, r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	report, err := h.runner.Execute(r.Context(), req.FileNames)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.JSON(w, http.StatusOK, server.Envelope{
		Success: report.FailedFiles == 0,
		Data:    report,
		Message: fmt.Sprintf("%d of %d script(s) executed successfully", report.SuccessfulFiles, report.TotalFiles),
	})
}

// handleDiagnose godoc
//
//	@Summary		Diagnose the database
//	@Description	Read-only structural health report. success mirrors data.connectionOk.
//	@Tags			database
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200 {object} server.Envelope{data=diagnose.Report}
//	@Failure		401 {object} server.Envelope
//	@Router			/db/diagnose [get]
func (h *Handler) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	report := h.diagnoser.Diagnose(r.Context())
	h.responder.JSON(w, http.StatusOK, server.Envelope{Success: report.ConnectionOK, Data: report})
}

// handleListScripts godoc
//
//	@Summary	List seed scripts
//	@Tags		database
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200 {object} server.Envelope{data=[]string}
//	@Failure	401 {object} server.Envelope
//	@Router		/db/scripts [get]
func (h *Handler) handleListScripts(w http.ResponseWriter, r *http.Request) {
	names, err := h.runner.Available()
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, names)
}
