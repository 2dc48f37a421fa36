// Package catalog serves the catalog resources and the character
// associations over HTTP.
package catalog

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/grandline/internal/apperr"
	"github.com/HerbHall/grandline/internal/server"
	"github.com/HerbHall/grandline/internal/services"
)

// Handler mounts every catalog resource under /api/{resource}. Reads are
// public; writes go through protect.
type Handler struct {
	catalog   *services.Catalog
	responder *server.Responder
	protect   func(http.Handler) http.Handler
	logger    *zap.Logger
}

// NewHandler creates a catalog Handler. protect wraps every mutating route;
// pass nil to leave writes open.
func NewHandler(c *services.Catalog, rs *server.Responder, protect func(http.Handler) http.Handler, logger *zap.Logger) *Handler {
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{catalog: c, responder: rs, protect: protect, logger: logger.Named("catalog")}
}

// RegisterRoutes implements server.RouteRegistrar.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mountResource(h, mux, "races", h.catalog.Races)
	mountResource(h, mux, "character-types", h.catalog.CharacterTypes)
	mountResource(h, mux, "haki-types", h.catalog.HakiTypes)
	mountResource(h, mux, "devil-fruit-types", h.catalog.DevilFruitTypes)
	mountResource(h, mux, "devil-fruits", h.catalog.DevilFruits)
	mountResource(h, mux, "ships", h.catalog.Ships)
	mountResource(h, mux, "organizations", h.catalog.Organizations)
	mountResource(h, mux, "characters", h.catalog.Characters)

	for _, a := range h.catalog.Associations {
		h.mountAssociation(mux, "characters", a)
	}
}

func (h *Handler) write(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.Handle(pattern, h.protect(fn))
	h.logger.Debug("mounted route", zap.String("pattern", pattern), zap.Bool("auth", true))
}

func (h *Handler) read(mux *http.ServeMux, pattern string, fn http.HandlerFunc) {
	mux.HandleFunc(pattern, fn)
	h.logger.Debug("mounted route", zap.String("pattern", pattern))
}

// pathID parses a positive integer path value.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(apperr.CodeInvalidID, name+" must be a positive integer")
	}
	return id, nil
}
