package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/query"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Envelope is the uniform JSON body of every API response.
type Envelope struct {
	Success    bool              `json:"success"`
	Data       any               `json:"data,omitempty"`
	Message    string            `json:"message,omitempty"`
	Error      apperr.Code       `json:"error,omitempty"`
	Field      string            `json:"field,omitempty"`
	Pagination *query.Pagination `json:"pagination,omitempty"`
	Details    string            `json:"details,omitempty"`
}

// Responder writes envelopes. Outside production, internal error details
// are attached to 500 responses.
type Responder struct {
	logger     *zap.Logger
	production bool
}

// NewResponder creates a Responder.
func NewResponder(logger *zap.Logger, production bool) *Responder {
	return &Responder{logger: logger.Named("http"), production: production}
}

// JSON writes env with the given status.
func (rs *Responder) JSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// OK writes a 200 envelope around data.
func (rs *Responder) OK(w http.ResponseWriter, data any) {
	rs.JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

// Created writes a 201 envelope around data.
func (rs *Responder) Created(w http.ResponseWriter, data any, message string) {
	rs.JSON(w, http.StatusCreated, Envelope{Success: true, Data: data, Message: message})
}

// Message writes a 200 envelope carrying only a message.
func (rs *Responder) Message(w http.ResponseWriter, message string) {
	rs.JSON(w, http.StatusOK, Envelope{Success: true, Message: message})
}

// Page writes a 200 envelope around a list page.
func (rs *Responder) Page(w http.ResponseWriter, items any, p query.Pagination) {
	rs.JSON(w, http.StatusOK, Envelope{Success: true, Data: items, Pagination: &p})
}

// Error maps err to its HTTP status and writes an error envelope. Untyped
// errors become 500 INTERNAL_ERROR with a fixed message.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.As(err)
	status := e.Kind.Status()

	env := Envelope{Error: e.Code, Message: e.Message, Field: e.Field}
	if e.Kind == apperr.KindInternal || e.Kind == apperr.KindUnavailable {
		rs.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", RequestID(r.Context())),
			zap.Error(err),
		)
		if !rs.production && e.Err != nil {
			env.Details = e.Err.Error()
		}
	}
	if e.Kind == apperr.KindRateLimited {
		w.Header().Set("Retry-After", "60")
	}
	rs.JSON(w, status, env)
}

// Decode reads a JSON body into v. Malformed, empty or oversized bodies
// yield an INVALID_BODY validation error.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		msg := "request body must be valid JSON"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case errors.As(err, &tooLarge):
			msg = "request body is too large"
		case strings.HasPrefix(err.Error(), "json: cannot unmarshal"):
			msg = "request body has the wrong shape"
		}
		return apperr.Validation(apperr.CodeInvalidBody, msg)
	}
	return nil
}
