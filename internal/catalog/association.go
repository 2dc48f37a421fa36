package catalog

import (
	"net/http"

	"github.com/HerbHall/grandline/internal/server"
	"github.com/HerbHall/grandline/internal/services"
)

type associationRoutes struct {
	h   *Handler
	svc services.AssociationService
}

func (h *Handler) mountAssociation(mux *http.ServeMux, owner string, repo *services.AssociationRepository) {
	ar := &associationRoutes{h: h, svc: repo}
	base := "/api/" + owner + "/{id}/" + repo.Association().Name
	h.read(mux, "GET "+base, ar.list)
	h.write(mux, "POST "+base, ar.add)
	h.write(mux, "DELETE "+base+"/{targetId}", ar.remove)
}

// list godoc
//
//	@Summary	List a character's associations
//	@Tags		associations
//	@Produce	json
//	@Param		id path int true "Character ID"
//	@Param		association path string true "Association" Enums(organizations, devil-fruits, haki, types)
//	@Success	200 {object} server.Envelope{data=[]models.Link}
//	@Failure	400 {object} server.Envelope
//	@Failure	404 {object} server.Envelope
//	@Router		/characters/{id}/{association} [get]
func (ar *associationRoutes) list(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	links, err := ar.svc.List(r.Context(), id)
	if err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	ar.h.responder.OK(w, links)
}

// add godoc
//
//	@Summary	Link a character to a target
//	@Description	Body carries the target id column (e.g. organization_id) plus any link attributes.
//	@Tags		associations
//	@Accept		json
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id path int true "Character ID"
//	@Param		association path string true "Association"
//	@Param		body body object true "Target id and link attributes"
//	@Success	201 {object} server.Envelope{data=models.Link}
//	@Failure	400 {object} server.Envelope
//	@Failure	404 {object} server.Envelope
//	@Failure	409 {object} server.Envelope
//	@Router		/characters/{id}/{association} [post]
func (ar *associationRoutes) add(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	var p services.Payload
	if err := server.Decode(w, r, &p); err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	link, err := ar.svc.Add(r.Context(), id, p)
	if err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	ar.h.responder.Created(w, link, "association created successfully")
}

// remove godoc
//
//	@Summary	Unlink a character from a target
//	@Tags		associations
//	@Produce	json
//	@Security	BearerAuth
//	@Param		id path int true "Character ID"
//	@Param		association path string true "Association"
//	@Param		targetId path int true "Target ID"
//	@Success	200 {object} server.Envelope
//	@Failure	400 {object} server.Envelope
//	@Failure	404 {object} server.Envelope
//	@Router		/characters/{id}/{association}/{targetId} [delete]
func (ar *associationRoutes) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	target, err := pathID(r, "targetId")
	if err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	if err := ar.svc.Remove(r.Context(), id, target); err != nil {
		ar.h.responder.Error(w, r, err)
		return
	}
	ar.h.responder.Message(w, "association removed successfully")
}
