package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/bondia/internal/errors"
	"github.com/pribylovaa/bondia/internal/service"
)

func (h *Handlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := h.Service.Settings(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{NotificationsEnabled: st.NotificationsEnabled})
}

func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in updateSettingsRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	st, err := h.Service.UpdateSettings(r.Context(), service.UpdateSettingsInput{
		NotificationsEnabled: in.NotificationsEnabled,
	})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, settingsResponse{NotificationsEnabled: st.NotificationsEnabled})
}
