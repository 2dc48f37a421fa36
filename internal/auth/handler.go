package auth

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/server"
)

// Handler serves the authentication endpoints.
type Handler struct {
	svc       *Service
	responder *server.Responder
	logger    *zap.Logger
}

// NewHandler creates an auth Handler.
func NewHandler(svc *Service, rs *server.Responder, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, responder: rs, logger: logger.Named("auth")}
}

// RegisterRoutes implements server.RouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.Handle("GET /api/auth/me", h.svc.Middleware(h.responder)(http.HandlerFunc(h.handleMe)))
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin godoc
//
//	@Summary		Log in
//	@Description	Exchanges administrator credentials for a bearer token.
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			credentials	body		LoginRequest	true	"Credentials"
//	@Success		200			{object}	server.Envelope{data=Token}
//	@Failure		400			{object}	server.Envelope
//	@Failure		401			{object}	server.Envelope
//	@Router			/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := server.Decode(w, r, &req); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		h.responder.Error(w, r, apperr.Validation(apperr.CodeInvalidBody, "username and password are required"))
		return
	}
	tok, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	h.responder.OK(w, tok)
}

// handleMe godoc
//
//	@Summary	Current identity
//	@Tags		auth
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{object}	server.Envelope{data=Identity}
//	@Failure	401	{object}	server.Envelope
//	@Router		/auth/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	id, _ := FromContext(r.Context())
	h.responder.OK(w, id)
}
