package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/bondia/internal/errors"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/service"
)

// multipartMemory — сколько формы держим в памяти, остальное уходит во временные файлы.
const multipartMemory = 8 << 20

// SaveProfile — PUT /profile, multipart/form-data.
// Поля: bio, age, location, interests (повторяемое или через запятую),
// файлы: profile_picture (0..1), gallery (0..N).
// При ошибке сохранения в поле result отдаются уже загруженные URL.
func (h *Handlers) SaveProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.parseMultipart(w, r); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	defer removeMultipart(r)

	in := service.SaveProfileInput{
		Bio:       r.FormValue("bio"),
		Age:       r.FormValue("age"),
		Location:  r.FormValue("location"),
		Interests: formList(r.MultipartForm, "interests"),
	}

	pic, err := formFiles(r.MultipartForm, "profile_picture")
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if len(pic) > 1 {
		apierrors.WriteError(w, r, errInvalidArgument("profile_picture"))
		return
	}

	if len(pic) == 1 {
		in.ProfilePicture = &pic[0]
	}

	if in.Gallery, err = formFiles(r.MultipartForm, "gallery"); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	res, err := h.Service.SaveProfile(r.Context(), in)
	if err != nil {
		if res != nil {
			apierrors.WriteErrorResult(w, r, err, saveResultFromModel(res))
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, saveResultFromModel(res))
}

// RetryProfileWrite — POST /profile/retry: повтор записи документа
// с URL, полученными из предыдущей неудавшейся попытки.
func (h *Handlers) RetryProfileWrite(w http.ResponseWriter, r *http.Request) {
	var in retryWriteRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("body"))
		return
	}

	res, err := h.Service.RetryProfileWrite(r.Context(), in.toInput())
	if err != nil {
		if res != nil {
			apierrors.WriteErrorResult(w, r, err, saveResultFromModel(res))
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, saveResultFromModel(res))
}

// GetProfile — GET /profiles/{id}.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	p, err := h.Service.ProfileByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileFromModel(p))
}

// ProfileImages — GET /profiles/{id}/images, поток NDJSON.
// Каждая строка уходит клиенту сразу, как только изображение подгружено.
func (h *Handlers) ProfileImages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument("id"))
		return
	}

	ctx := r.Context()
	p, err := h.Service.ProfileByID(ctx, id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	enc := json.NewEncoder(w)
	lg := log.From(ctx).With("op", "handlers/ProfileImages", "user_id", id.String())

	for res := range h.Service.ProfileImages(ctx, p) {
		line := imageLine{Kind: res.Kind, Index: res.Index, URL: res.URL}
		switch {
		case res.Err != nil:
			line.Error = imageErrorCode(res.Err)
		case res.Image != nil:
			line.ContentType = res.Image.ContentType
			line.Data = res.Image.Data
		}

		if err := enc.Encode(line); err != nil {
			// Клиент ушёл; канал дочитываем, чтобы не держать загрузчики.
			lg.Debug("image_stream_write_failed", "err", err)
			continue
		}

		if err := rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
			lg.Debug("image_stream_flush_failed", "err", err)
		}
	}
}

func imageErrorCode(err error) string {
	if errors.Is(err, service.ErrNotFound) {
		return "not_found"
	}

	return "fetch_failed"
}

func (h *Handlers) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errInvalidArgument("request body too large")
		}

		return errInvalidArgument("multipart form")
	}

	return nil
}

func removeMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// formList собирает повторяемое поле; значения через запятую тоже разбиваются.
func formList(f *multipart.Form, key string) []string {
	if f == nil {
		return nil
	}

	var out []string
	for _, v := range f.Value[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}

// formFiles читает все файлы поля в память в порядке их следования в форме.
// Content-Type части — только подсказка, сервис определяет тип по байтам.
func formFiles(f *multipart.Form, key string) ([]models.Image, error) {
	if f == nil {
		return nil, nil
	}

	headers := f.File[key]
	out := make([]models.Image, 0, len(headers))

	for _, fh := range headers {
		data, err := readPart(fh)
		if err != nil {
			return nil, errInvalidArgument(key)
		}

		out = append(out, models.Image{Data: data, ContentType: fh.Header.Get("Content-Type")})
	}

	return out, nil
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
