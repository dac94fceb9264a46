package handlers

import (
	"net/http"

	"tmplq/internal/apperr"
	"tmplq/internal/service"
	"tmplq/internal/store"
	"tmplq/pkg/api"
)

// CreateTemplate handles POST /templates.
func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateTemplateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.check(req); err != nil {
		h.respondError(w, r, err)
		return
	}

	err := h.svc.CreateTemplate(r.Context(), service.TemplateInput{
		ID:           req.ID,
		Description:  req.Description,
		Body:         req.Body,
		SampleParams: req.SampleParams,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusCreated, api.TemplateIDResponse{ID: req.ID, Created: true})
}

// ListTemplates handles GET /templates.
func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := h.svc.ListTemplates(r.Context())

	resp := make([]api.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		resp = append(resp, templateResponse(t))
	}
	h.respondJson(w, http.StatusOK, resp)
}

// GetTemplate handles GET /templates/{id}.
func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTemplate(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, templateResponse(t))
}

// UpdateTemplate handles PUT /templates/{id}.
// It merges the supplied fields, creating the template when it does not exist.
func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req api.UpdateTemplateRequest
	if err := h.decode(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.check(req); err != nil {
		h.respondError(w, r, err)
		return
	}
	if req.Description == nil && req.Body == nil && req.SampleParams == nil {
		h.httpError(w, "At least one of description, body or sample_params is required", apperr.BadRequest)
		return
	}

	created, err := h.svc.UpdateTemplate(r.Context(), id, service.TemplatePatch{
		Description:  req.Description,
		Body:         req.Body,
		SampleParams: req.SampleParams,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.respondJson(w, status, api.TemplateIDResponse{ID: id, Created: created})
}

// DeleteTemplate handles DELETE /templates/{id}.
func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.svc.DeleteTemplate(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJson(w, http.StatusOK, api.MessageResponse{Message: "template " + id + " deleted"})
}

func templateResponse(t store.Template) api.TemplateResponse {
	return api.TemplateResponse{
		ID:           t.ID,
		Description:  t.Description,
		Body:         t.Body,
		SampleParams: t.SampleParams,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}
