package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/noah-isme/fincra-gateway/internal/common"
)

// Handler exposes the administrative settings endpoints.
type Handler struct {
	Svc *Service
}

// Get returns the current settings with secrets masked.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "SETTINGS_NOT_CONFIGURED", "settings unavailable", nil)
		return
	}
	current, err := h.Svc.Get(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "SETTINGS_LOAD_ERROR", "unable to load settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, current.Masked())
}

type updateRequest struct {
	Settings
	ClearSecrets []string `json:"clear_secrets"`
}

// Put replaces the settings. Fields omitted from the body keep their current
// values. Secrets listed in clear_secrets are erased.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "SETTINGS_NOT_CONFIGURED", "settings unavailable", nil)
		return
	}
	current, err := h.Svc.Get(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "SETTINGS_LOAD_ERROR", "unable to load settings", nil)
		return
	}
	req := updateRequest{Settings: current}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	updatedBy, _ := common.Subject(r.Context())
	saved, err := h.Svc.Update(r.Context(), req.Settings, updatedBy, req.ClearSecrets...)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION_FAILED", "invalid settings", verr.Fields)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "SETTINGS_SAVE_ERROR", "unable to save settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, saved.Masked())
}
