package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pribylovaa/bondia/internal/models"
	"github.com/pribylovaa/bondia/internal/pkg/identity"
	"github.com/pribylovaa/bondia/internal/pkg/log"
	"github.com/pribylovaa/bondia/internal/storage"
	"github.com/pribylovaa/bondia/internal/upload"
)

const (
	maxBioRunes       = 1000
	maxLocationRunes  = 200
	maxInterests      = 50
	maxInterestRunes  = 64
	minAge, maxAge    = 13, 120
	profileImagesRoot = "profile_images"
	galleryImagesRoot = "gallery_images"
)

// SaveProfileInput — данные формы редактирования профиля.
// ProfilePicture == nil — картинка профиля не меняется.
// Пустой Gallery — галерея не меняется.
type SaveProfileInput struct {
	Bio            string
	Age            string
	Location       string
	Interests      []string
	ProfilePicture *models.Image
	Gallery        []models.Image
}

// ProfileWrite — набор полей, который уходит в одну запись документа профиля.
// ProfileImageURL == nil и GalleryURLs == nil означают «не трогать».
type ProfileWrite struct {
	Bio             string
	Age             string
	Location        string
	Interests       []string
	ProfileImageURL *string
	GalleryURLs     []string
}

// SaveResult — итог сохранения профиля, в том числе неуспешного.
// URL загруженных объектов возвращаются всегда, даже если документ не записан.
type SaveResult struct {
	ProfileImageURL string
	GalleryURLs     []string
	FailedGallery   []int
	Written         bool
	// Write — то, что записывалось (или записалось бы); годится для RetryProfileWrite.
	Write ProfileWrite
}

// SaveProfile сохраняет профиль текущего пользователя.
//
// Валидация (до любых сетевых операций):
//   - идентичность должна быть в ctx, иначе ErrNotAuthenticated;
//   - age пустой или целое 13..120, bio <= 1000 символов, location <= 200;
//   - не больше images.max_gallery изображений, каждое непустое, не больше
//     images.max_size_bytes и допустимого типа (тип определяется по байтам).
//
// Поведение:
//   - параллельное сохранение того же пользователя отклоняется с ErrSaveInProgress;
//   - картинка профиля и галерея загружаются одновременно, запись документа
//     выполняется строго после того, как осели все загрузки;
//   - ровно одна merge-запись: поля, которых нет в записи, не меняются;
//   - если ctx отменён до записи, запись пропускается (SaveError с ErrSaveCanceled).
//
// Возвращает:
//   - SaveResult на любом пути после валидации;
//   - *SaveError: ErrDocumentWrite > ErrProfilePictureUpload > ErrGalleryPartialFailure.
func (s *Service) SaveProfile(ctx context.Context, in SaveProfileInput) (*SaveResult, error) {
	const op = "service/profile/SaveProfile"

	uid, ok := identity.From(ctx)
	if !ok {
		log.From(ctx).Warn("unauthenticated profile save", "op", op)

		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String())

	write, err := s.profileWriteFromInput(in)
	if err != nil {
		lg.Warn("invalid argument", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	picture, err := s.imageTask(in.ProfilePicture, "profile", profileImagesRoot+"/"+uid.String())
	if err != nil {
		lg.Warn("invalid argument: profile picture", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	gallery := make([]upload.Task, 0, len(in.Gallery))
	for i := range in.Gallery {
		t, err := s.imageTask(&in.Gallery[i], "gallery", galleryImagesRoot+"/"+uid.String())
		if err != nil {
			lg.Warn("invalid argument: gallery image", "index", i, "err", err)

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		gallery = append(gallery, *t)
	}

	release, ok := s.saves.tryAcquire(uid)
	if !ok {
		lg.Warn("profile save already in progress")
		s.metrics.ObserveSave("rejected_in_progress")

		return nil, fmt.Errorf("%s: %w", op, ErrSaveInProgress)
	}
	defer release()

	var pictureTasks []upload.Task
	if picture != nil {
		pictureTasks = []upload.Task{*picture}
	}

	picBatch := s.uploads.Start(ctx, pictureTasks)
	galBatch := s.uploads.Start(ctx, gallery)

	<-picBatch.Done()
	<-galBatch.Done()

	picState := picBatch.State()
	galState := galBatch.State()

	res := &SaveResult{
		GalleryURLs:   galState.URLs(),
		FailedGallery: galState.FailedIndices(),
	}

	if picture != nil && !picState.Failed() {
		res.ProfileImageURL = picState.URLs()[0]
		write.ProfileImageURL = &res.ProfileImageURL
	}

	if len(gallery) > 0 {
		write.GalleryURLs = res.GalleryURLs
	}

	res.Write = write

	if err := ctx.Err(); err != nil {
		lg.Warn("profile save canceled before write",
			"err", err,
			"uploaded_gallery", len(res.GalleryURLs),
			"profile_image_uploaded", res.ProfileImageURL != "",
		)
		s.metrics.ObserveSave("canceled")

		return res, fmt.Errorf("%s: %w", op, &SaveError{
			Kind:        ErrSaveCanceled,
			FailedCount: galState.FailedCount(),
			Err:         err,
		})
	}

	if err := s.writeProfile(ctx, uid, write); err != nil {
		lg.Error("profile document write failed", "err", err)
		s.metrics.ObserveSave("document_write")

		return res, fmt.Errorf("%s: %w", op, &SaveError{
			Kind:        ErrDocumentWrite,
			FailedCount: galState.FailedCount(),
			Err:         err,
		})
	}

	res.Written = true

	if picture != nil && picState.Failed() {
		lg.Warn("profile picture upload failed", "err", picState.FirstFailure)
		s.metrics.ObserveSave("profile_picture_upload")

		return res, fmt.Errorf("%s: %w", op, &SaveError{
			Kind:        ErrProfilePictureUpload,
			FailedCount: galState.FailedCount(),
			Err:         picState.FirstFailure,
		})
	}

	if galState.Failed() {
		lg.Warn("gallery upload partially failed",
			"failed", galState.FailedCount(),
			"total", galState.Total,
			"err", galState.FirstFailure,
		)
		s.metrics.ObserveSave("gallery_partial_failure")

		return res, fmt.Errorf("%s: %w", op, &SaveError{
			Kind:        ErrGalleryPartialFailure,
			FailedCount: galState.FailedCount(),
			Err:         galState.FirstFailure,
		})
	}

	s.metrics.ObserveSave("ok")

	return res, nil
}

// RetryProfileWrite повторяет только запись документа для уже загруженных URL.
//
// Валидация:
//   - идентичность в ctx, иначе ErrNotAuthenticated;
//   - скалярные поля по тем же правилам, что и в SaveProfile;
//   - URL должны принадлежать текущему пользователю (его префиксы ключей).
//
// Поведение:
//   - сериализуется с SaveProfile того же пользователя (ErrSaveInProgress);
//   - объекты повторно не загружаются;
//   - ошибка записи возвращается как *SaveError с ErrDocumentWrite.
func (s *Service) RetryProfileWrite(ctx context.Context, w ProfileWrite) (*SaveResult, error) {
	const op = "service/profile/RetryProfileWrite"

	uid, ok := identity.From(ctx)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrNotAuthenticated)
	}

	lg := log.From(ctx).With("op", op, "user_id", uid.String())

	normalized, err := s.profileWriteFromInput(SaveProfileInput{
		Bio:       w.Bio,
		Age:       w.Age,
		Location:  w.Location,
		Interests: w.Interests,
	})
	if err != nil {
		lg.Warn("invalid argument", "err", err)

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if w.ProfileImageURL != nil {
		if !s.ownsURL(*w.ProfileImageURL, profileImagesRoot, uid) {
			lg.Warn("invalid argument: foreign profile image url")

			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		u := *w.ProfileImageURL
		normalized.ProfileImageURL = &u
	}

	if w.GalleryURLs != nil {
		if len(w.GalleryURLs) > s.cfg.Images.MaxGallery {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
		}

		for _, u := range w.GalleryURLs {
			if !s.ownsURL(u, galleryImagesRoot, uid) {
				lg.Warn("invalid argument: foreign gallery url")

				return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
			}
		}

		normalized.GalleryURLs = append([]string{}, w.GalleryURLs...)
	}

	release, ok := s.saves.tryAcquire(uid)
	if !ok {
		lg.Warn("profile save already in progress")

		return nil, fmt.Errorf("%s: %w", op, ErrSaveInProgress)
	}
	defer release()

	res := &SaveResult{GalleryURLs: normalized.GalleryURLs, Write: normalized}
	if normalized.ProfileImageURL != nil {
		res.ProfileImageURL = *normalized.ProfileImageURL
	}

	if err := s.writeProfile(ctx, uid, normalized); err != nil {
		lg.Error("profile document write failed", "err", err)
		s.metrics.ObserveSave("document_write")

		return res, fmt.Errorf("%s: %w", op, &SaveError{Kind: ErrDocumentWrite, Err: err})
	}

	res.Written = true
	s.metrics.ObserveSave("ok")

	return res, nil
}

// ProfileByID возвращает профиль пользователя.
//
// Поведение:
//   - uuid.Nil — ErrInvalidArgument;
//   - документа нет — ErrNotFound;
//   - прочие ошибки хранилища — ErrInternal.
func (s *Service) ProfileByID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	const op = "service/profile/ProfileByID"

	lg := log.From(ctx).With("op", op, "user_id", userID.String())

	if userID == uuid.Nil {
		lg.Warn("invalid argument: empty user_id")

		return nil, fmt.Errorf("%s: %w", op, ErrInvalidArgument)
	}

	doc, err := s.documents.GetDocument(ctx, profilesCollection, userID.String())
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			lg.Warn("profile not found")

			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil, fmt.Errorf("%s: %w", op, err)
		default:
			lg.Error("storage error", "err", err)

			return nil, fmt.Errorf("%s: %w", op, ErrInternal)
		}
	}

	return &models.Profile{
		UserID:           userID,
		Bio:              asString(doc["bio"]),
		Age:              asString(doc["age"]),
		Location:         asString(doc["location"]),
		Interests:        asStrings(doc["interests"]),
		ProfileImageURL:  asString(doc["profile_image_url"]),
		ImageGalleryURLs: asStrings(doc["image_gallery_urls"]),
		UpdatedAt:        asTime(doc["updated_at"]),
	}, nil
}

func (s *Service) writeProfile(ctx context.Context, uid uuid.UUID, w ProfileWrite) error {
	fields := storage.Fields{
		"bio":        w.Bio,
		"age":        w.Age,
		"location":   w.Location,
		"interests":  w.Interests,
		"updated_at": s.now(),
	}

	if w.ProfileImageURL != nil {
		fields["profile_image_url"] = *w.ProfileImageURL
	}

	if w.GalleryURLs != nil {
		fields["image_gallery_urls"] = w.GalleryURLs
	}

	return s.documents.MergeDocument(ctx, profilesCollection, uid.String(), fields)
}

// profileWriteFromInput проверяет и нормализует скалярные поля профиля.
func (s *Service) profileWriteFromInput(in SaveProfileInput) (ProfileWrite, error) {
	w := ProfileWrite{
		Bio:       strings.TrimSpace(in.Bio),
		Age:       strings.TrimSpace(in.Age),
		Location:  strings.TrimSpace(in.Location),
		Interests: models.NormalizeInterests(in.Interests),
	}

	if w.Age != "" {
		age, err := strconv.Atoi(w.Age)
		if err != nil || age < minAge || age > maxAge {
			return ProfileWrite{}, fmt.Errorf("age must be an integer in %d..%d: %w", minAge, maxAge, ErrInvalidArgument)
		}

		w.Age = strconv.Itoa(age)
	}

	if utf8.RuneCountInString(w.Bio) > maxBioRunes {
		return ProfileWrite{}, fmt.Errorf("bio is too long: %w", ErrInvalidArgument)
	}

	if utf8.RuneCountInString(w.Location) > maxLocationRunes {
		return ProfileWrite{}, fmt.Errorf("location is too long: %w", ErrInvalidArgument)
	}

	if len(w.Interests) > maxInterests {
		return ProfileWrite{}, fmt.Errorf("too many interests: %w", ErrInvalidArgument)
	}

	for _, v := range w.Interests {
		if utf8.RuneCountInString(v) > maxInterestRunes {
			return ProfileWrite{}, fmt.Errorf("interest is too long: %w", ErrInvalidArgument)
		}
	}

	if len(in.Gallery) > s.cfg.Images.MaxGallery {
		return ProfileWrite{}, fmt.Errorf("too many gallery images: %w", ErrInvalidArgument)
	}

	return w, nil
}

// ownsURL — URL выдан объектным хранилищем и указывает на ключ под <root>/<uid>/.
func (s *Service) ownsURL(u, root string, uid uuid.UUID) bool {
	key, ok := s.objects.KeyFromURL(u)
	if !ok || strings.Contains(key, "..") {
		return false
	}

	rest, ok := strings.CutPrefix(key, root+"/"+uid.String()+"/")
	return ok && rest != ""
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asStrings(v any) []string {
	switch vv := v.(type) {
	case []string:
		return append([]string{}, vv...)
	case []any:
		out := make([]string, 0, len(vv))
		for _, x := range vv {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}

		return out
	default:
		return nil
	}
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t.UTC()
}
