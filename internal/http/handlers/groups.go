package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/bondia/internal/errors"
)

// MyGroups — GET /groups: группы, где текущий пользователь участник.
func (h *Handlers) MyGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.Service.MyGroups(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := make([]groupSummaryResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupSummaryFromModel(g))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	g, err := h.Service.GroupByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, groupFromModel(g))
}

func (h *Handlers) RequestJoin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	if err := h.Service.RequestJoin(r.Context(), id); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// AcceptJoin — POST /groups/{id}/members/{user_id}; только владелец группы.
func (h *Handlers) AcceptJoin(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	member, err := uuid.Parse(chi.URLParam(r, "user_id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("user_id"))
		return
	}

	if err := h.Service.AcceptJoin(r.Context(), id, member); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	var in sendMessageRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	msg, err := h.Service.SendMessage(r.Context(), id, in.Text)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageFromModel(msg))
}

// ListMessages — GET /groups/{id}/messages?page_size=&page_token=, от старых к новым.
func (h *Handlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	params, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	page, err := h.Service.ListMessages(r.Context(), id, params)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := messagePageResponse{
		Items:         make([]messageResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}

	for i := range page.Items {
		out.Items = append(out.Items, messageFromModel(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}
