package handlers

import (
	"net/http"

	"tmplq/internal/config"
	"tmplq/pkg/api"
)

// GetConfig handles GET /config.
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	h.respondJson(w, http.StatusOK, settingsResponse(h.svc.Config(r.Context())))
}

// UpdateConfig handles PATCH /config.
// The patch is applied only if every supplied key is valid.
func (h *Handlers) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if err := h.decode(w, r, &patch); err != nil {
		h.respondError(w, r, err)
		return
	}

	next, err := h.svc.UpdateConfig(r.Context(), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	h.respondJson(w, http.StatusOK, api.UpdateConfigResponse{
		Message: "config updated",
		Config:  settingsResponse(next),
	})
}

// Stats handles GET /stats.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	st := h.svc.Stats(r.Context())
	h.respondJson(w, http.StatusOK, api.StatsResponse{
		QueueDepth:  st.QueueDepth,
		Queued:      st.Queued,
		Processing:  st.Processing,
		Succeeded:   st.Succeeded,
		Failed:      st.Failed,
		TotalJobs:   st.TotalJobs,
		HistorySize: st.HistorySize,
		Templates:   st.Templates,
	})
}

func settingsResponse(s config.Settings) api.Settings {
	return api.Settings{
		QueueCapacity:    s.QueueCapacity,
		HistoryCapacity:  s.HistoryCapacity,
		MaxTemplateBytes: s.MaxTemplateBytes,
		ProcessingDelayMs: api.DelayRange{
			Min: s.ProcessingDelay.Min,
			Max: s.ProcessingDelay.Max,
		},
	}
}
