package catalog

import (
	"fmt"
	"net/http"

	"github.com/HerbHall/grandline/internal/query"
	"github.com/HerbHall/grandline/internal/server"
	"github.com/HerbHall/grandline/internal/services"
)

// resourceRoutes serves one resource's five CRUD endpoints.
type resourceRoutes[T any] struct {
	h    *Handler
	svc  services.ResourceService[T]
	name string
}

func mountResource[T any](h *Handler, mux *http.ServeMux, path string, repo *services.Repository[T]) {
	rr := &resourceRoutes[T]{h: h, svc: repo, name: repo.Resource().Name}
	base := "/api/" + path
	h.read(mux, "GET "+base, rr.list)
	h.read(mux, "GET "+base+"/{id}", rr.get)
	h.write(mux, "POST "+base, rr.create)
	h.write(mux, "PUT "+base+"/{id}", rr.update)
	h.write(mux, "DELETE "+base+"/{id}", rr.remove)
}

// list godoc
//
//	@Summary		List resources
//	@Description	Paginated, searchable, sortable list. Each resource accepts its own filter parameters.
//	@Tags			catalog
//	@Produce		json
//	@Param			resource path string true "Resource" Enums(races, character-types, haki-types, devil-fruit-types, devil-fruits, ships, organizations, characters)
//	@Param			page query int false "Page (1-based)" default(1)
//	@Param			limit query int false "Page size, clamped to 1..100" default(10)
//	@Param			search query string false "Substring match over the resource's search columns"
//	@Param			sortBy query string false "Sort column; unknown values fall back to the default"
//	@Param			sortOrder query string false "asc or desc" Enums(asc, desc)
//	@Success		200 {object} server.Envelope{data=[]any,pagination=query.Pagination}
//	@Failure		400 {object} server.Envelope
//	@Router			/{resource} [get]
func (rr *resourceRoutes[T]) list(w http.ResponseWriter, r *http.Request) {
	res, err := rr.svc.List(r.Context(), query.FromValues(r.URL.Query()))
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	rr.h.responder.Page(w, res.Items, res.Pagination)
}

// get godoc
//
//	@Summary	Get a resource by ID
//	@Tags		catalog
//	@Produce	json
//	@Param		resource path string true "Resource"
//	@Param		id path int true "ID"
//	@Success	200 {object} server.Envelope
//	@Failure	400 {object} server.Envelope
//	@Failure	404 {object} server.Envelope
//	@Router		/{resource}/{id} [get]
func (rr *resourceRoutes[T]) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	item, err := rr.svc.Get(r.Context(), id)
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	rr.h.responder.OK(w, item)
}

// create godoc
//
//	@Summary	Create a resource
//	@Tags		catalog
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		resource path string true "Resource"
//	@Param		body body object true "Column values; name is required"
//	@Success	201 {object} server.Envelope
//	@Failure	400 {object} server.Envelope
//	@Failure	401 {object} server.Envelope
//	@Failure	409 {object} server.Envelope
//	@Router		/{resource} [post]
func (rr *resourceRoutes[T]) create(w http.ResponseWriter, r *http.Request) {
	var p services.Payload
	if err := server.Decode(w, r, &p); err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	item, err := rr.svc.Create(r.Context(), p)
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	rr.h.responder.Created(w, item, fmt.Sprintf("%s created successfully", rr.name))
}

// update godoc
//
//	@Summary	Update a resource
//	@Description	Writes only the supplied columns; at least one known column is required.
//	@Tags		catalog
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		resource path string true "Resource"
//	@Param		id path int true "ID"
//	@Param		body body object true "Column values"
//	@Success	200 {object} server.Envelope
//	@Failure	400 {object} server.Envelope
//	@Failure	404 {object} server.Envelope
//	@Failure	409 {object} server.Envelope
//	@Router		/{resource}/{id} [put]
func (rr *resourceRoutes[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	var p services.Payload
	if err := server.Decode(w, r, &p); err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	item, err := rr.svc.Update(r.Context(), id, p)
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	rr.h.responder.JSON(w, http.StatusOK, server.Envelope{
		Success: true,
		Data:    item,
		Message: fmt.Sprintf("%s updated successfully", rr.name),
	})
}

// remove godoc
//
//	@Summary	Delete a resource
//	@Description	Fails with IN_USE or HAS_ASSOCIATIONS while other rows reference it.
//	@Tags		catalog
//	@Produce	json
//	@Security	BearerAuth
//	@Param		resource path string true "Resource"
//	@Param		id path int true "ID"
//	@Success	200 {object} server.Envelope
//	@Failure	400 {object} server.Envelope
//	@Failure	404 {object} server.Envelope
//	@Failure	409 {object} server.Envelope
//	@Router		/{resource}/{id} [delete]
func (rr *resourceRoutes[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	if err := rr.svc.Delete(r.Context(), id); err != nil {
		rr.h.responder.Error(w, r, err)
		return
	}
	rr.h.responder.Message(w, fmt.Sprintf("%s deleted successfully", rr.name))
}
