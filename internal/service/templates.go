package service

import (
	"context"

	"tmplq/internal/apperr"
	"tmplq/internal/logger"
	"tmplq/internal/render"
	"tmplq/internal/store"
)

// TemplateInput is the full description of a new template.
type TemplateInput struct {
	ID           string
	Description  string
	Body         string
	SampleParams map[string]any
}

// TemplatePatch is a partial template update. Nil fields keep their current value.
type TemplatePatch struct {
	Description  *string
	Body         *string
	SampleParams map[string]any
}

// CreateTemplate registers a new template.
func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) error {
	if in.ID == "" {
		return apperr.New(apperr.BadRequest, "template id is required")
	}
	if err := s.validateBody(in.Body); err != nil {
		return err
	}

	now := s.clock.Now()
	err := s.templates.Create(store.Template{
		ID:           in.ID,
		Description:  in.Description,
		Body:         in.Body,
		SampleParams: in.SampleParams,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx, s.logger).Info("template created", "template_id", in.ID)
	return nil
}

// GetTemplate returns the template with the given id.
func (s *Service) GetTemplate(ctx context.Context, id string) (store.Template, error) {
	return s.templates.Get(id)
}

// ListTemplates returns all templates ordered by id.
func (s *Service) ListTemplates(ctx context.Context) []store.Template {
	return s.templates.List()
}

// UpdateTemplate merges patch into the template with the given id, creating it
// when absent. A supplied body is validated exactly as on creation. It reports
// whether the template was created.
func (s *Service) UpdateTemplate(ctx context.Context, id string, patch TemplatePatch) (bool, error) {
	if id == "" {
		return false, apperr.New(apperr.BadRequest, "template id is required")
	}
	if patch.Body != nil {
		if err := s.validateBody(*patch.Body); err != nil {
			return false, err
		}
	}

	now := s.clock.Now()
	created, err := s.templates.Upsert(id, func(cur store.Template, exists bool) (store.Template, error) {
		if !exists {
			if patch.Body == nil {
				return store.Template{}, apperr.New(apperr.BadRequest, "template %q does not exist and no body was supplied", id)
			}
			cur.CreatedAt = now
		}
		if patch.Description != nil {
			cur.Description = *patch.Description
		}
		if patch.Body != nil {
			cur.Body = *patch.Body
		}
		if patch.SampleParams != nil {
			cur.SampleParams = patch.SampleParams
		}
		cur.UpdatedAt = now
		return cur, nil
	})
	if err != nil {
		return false, err
	}

	logger.FromContext(ctx, s.logger).Info("template updated", "template_id", id, "created", created)
	return created, nil
}

// DeleteTemplate removes a template. Jobs already submitted against it fail when processed.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.templates.Delete(id); err != nil {
		return err
	}
	logger.FromContext(ctx, s.logger).Info("template deleted", "template_id", id)
	return nil
}

func (s *Service) validateBody(body string) error {
	if body == "" {
		return apperr.New(apperr.BadRequest, "template body is required")
	}
	if limit := s.settings.Get().MaxTemplateBytes; len(body) > limit {
		return apperr.New(apperr.BadRequest, "template body is %d bytes, the limit is %d", len(body), limit)
	}
	if err := render.Validate(body); err != nil {
		return apperr.Invalid("template body is invalid", err)
	}
	return nil
}
