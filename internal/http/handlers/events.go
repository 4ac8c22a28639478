package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	apierrors "github.com/pribylovaa/bondia/internal/errors"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/service"
)

// PostEvent — POST /events, multipart/form-data.
// Поля: title, location, description, starts_at (RFC3339), cost,
// group_chat_enabled, terms_accepted; файл image.
func (h *Handlers) PostEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer removeMultipart(r)

	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(r.FormValue("starts_at")))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("starts_at"))
		return
	}

	chat, err := formBool(r.FormValue("group_chat_enabled"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("group_chat_enabled"))
		return
	}

	terms, err := formBool(r.FormValue("terms_accepted"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("terms_accepted"))
		return
	}

	in := service.PostEventInput{
		Title:            r.FormValue("title"),
		Location:         r.FormValue("location"),
		Description:      r.FormValue("description"),
		StartsAt:         startsAt,
		Cost:             models.CostTier(r.FormValue("cost")),
		GroupChatEnabled: chat,
		TermsAccepted:    terms,
	}

	images, err := formFiles(r.MultipartForm, "image")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if len(images) > 1 {
		apierrors.WriteError(w, r, errInvalidArgument("image"))
		return
	}

	if len(images) == 1 {
		in.Image = &images[0]
	}

	ev, err := h.Service.PostEvent(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, eventFromModel(ev))
}

// ListEvents — GET /events?q=&from=&to=&page_size=&page_token=.
func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params, err := listParams(r)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	in := service.ListEventsInput{Query: q.Get("q"), ListParams: params}

	if in.From, err = queryTime(q.Get("from")); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("from"))
		return
	}

	if in.To, err = queryTime(q.Get("to")); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("to"))
		return
	}

	page, err := h.Service.ListEvents(r.Context(), in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := eventPageResponse{
		Items:         make([]eventResponse, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}

	for i := range page.Items {
		out.Items = append(out.Items, eventFromModel(&page.Items[i]))
	}

	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	ev, err := h.Service.EventByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, eventFromModel(ev))
}

// formBool: пустое значение — false; чекбокс формы присылает "on".
func formBool(v string) (bool, error) {
	switch v = strings.TrimSpace(v); v {
	case "":
		return false, nil
	case "on":
		return true, nil
	default:
		return strconv.ParseBool(v)
	}
}

func queryTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, v)
}
