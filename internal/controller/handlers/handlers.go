// Package handlers contains HTTP handlers for the tmplq API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"tmplq/internal/apperr"
	"tmplq/internal/config"
	"tmplq/internal/logger"
	"tmplq/internal/service"
	"tmplq/internal/store"
	"tmplq/pkg/api"
)

// maxBodyBytes caps request bodies. Template size is enforced separately by the service.
const maxBodyBytes = 1 << 20

// Service is the set of operations the handlers expose.
type Service interface {
	CreateTemplate(ctx context.Context, in service.TemplateInput) error
	GetTemplate(ctx context.Context, id string) (store.Template, error)
	ListTemplates(ctx context.Context) []store.Template
	UpdateTemplate(ctx context.Context, id string, patch service.TemplatePatch) (bool, error)
	DeleteTemplate(ctx context.Context, id string) error

	SubmitJob(ctx context.Context, templateID string, params any) (int64, error)
	GetJob(ctx context.Context, id int64) (store.Job, error)
	ListJobs(ctx context.Context) []store.Job
	HistoryEntries(ctx context.Context) []store.HistoryEntry

	Config(ctx context.Context) config.Settings
	UpdateConfig(ctx context.Context, patch map[string]any) (config.Settings, error)
	Stats(ctx context.Context) service.Stats
}

// Handlers holds all HTTP handlers and their dependencies.
type Handlers struct {
	svc      Service
	validate *validator.Validate
	logger   *slog.Logger
}

// New creates a new Handlers instance backed by svc.
func New(svc Service, log *slog.Logger) *Handlers {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handlers{svc: svc, validate: v, logger: log}
}

// A helper function to write standard JSON responses.
func (h *Handlers) respondJson(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// A helper function to return consistent error messages.
func (h *Handlers) httpError(w http.ResponseWriter, message string, kind apperr.Kind, details ...string) {
	h.respondJson(w, apperr.HTTPStatus(kind), api.ErrorResponse{
		Error:   message,
		Code:    string(kind),
		Details: details,
	})
}

// respondError translates a service error into an HTTP error response.
func (h *Handlers) respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)

	var e *apperr.Error
	if !errors.As(err, &e) || kind == apperr.Internal {
		logger.FromContext(r.Context(), h.logger).Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.httpError(w, "Internal server error", apperr.Internal)
		return
	}

	if e.RetryAfter > 0 {
		secs := int(math.Ceil(e.RetryAfter.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	h.httpError(w, e.Error(), kind, e.Details...)
}

// decode reads a JSON body into dst. Numbers are kept as json.Number so
// integers round-trip exactly.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.BadRequest, "Request body is required")
		}
		return apperr.Wrap(apperr.BadRequest, err, "Invalid request body")
	}
	if dec.More() {
		return apperr.New(apperr.BadRequest, "Invalid request body: trailing data")
	}
	return nil
}

// check validates a request DTO against its validate tags.
func (h *Handlers) check(v any) error {
	err := h.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Wrap(apperr.BadRequest, err, "Invalid request")
	}

	var merr *multierror.Error
	for _, fe := range verrs {
		merr = multierror.Append(merr, fieldError(fe))
	}
	return apperr.Invalid("Invalid request", merr)
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s: is required", fe.Field())
	case "max":
		return fmt.Errorf("%s: must be at most %s characters", fe.Field(), fe.Param())
	case "excludesall":
		return fmt.Errorf("%s: must not contain any of %q", fe.Field(), fe.Param())
	default:
		return fmt.Errorf("%s: failed %s validation", fe.Field(), fe.Tag())
	}
}
