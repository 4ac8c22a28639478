package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SaveError — классифицированный отказ сохранения профиля.
//
// Kind — одна из ErrDocumentWrite, ErrProfilePictureUpload,
// ErrGalleryPartialFailure, ErrSaveCanceled. Err — исходная причина.
// FailedCount — число незагруженных изображений галереи.
//
// errors.Is срабатывает и на Kind, и на причину.
type SaveError struct {
	Kind        error
	FailedCount int
	Err         error
}

func (e *SaveError) Error() string {
	msg := e.Kind.Error()
	if errors.Is(e.Kind, ErrGalleryPartialFailure) {
		msg = fmt.Sprintf("%s (%d failed)", msg, e.FailedCount)
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *SaveError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}

	return []error{e.Kind, e.Err}
}

// Stage — машиночитаемое имя стадии, на которой произошёл отказ.
func (e *SaveError) Stage() string {
	switch {
	case errors.Is(e.Kind, ErrDocumentWrite):
		return "document_write"
	case errors.Is(e.Kind, ErrProfilePictureUpload):
		return "profile_picture_upload"
	case errors.Is(e.Kind, ErrGalleryPartialFailure):
		return "gallery_upload"
	case errors.Is(e.Kind, ErrSaveCanceled):
		return "canceled"
	default:
		return "unknown"
	}
}

// saveLocks — множество пользователей, у которых идёт сохранение.
// Повторное сохранение того же пользователя отклоняется, а не ставится в очередь.
type saveLocks struct {
	mu     sync.Mutex
	active map[uuid.UUID]struct{}
}

func newSaveLocks() *saveLocks {
	return &saveLocks{active: make(map[uuid.UUID]struct{})}
}

// tryAcquire занимает слот пользователя. ok == false — слот занят.
func (l *saveLocks) tryAcquire(id uuid.UUID) (release func(), ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, busy := l.active[id]; busy {
		return nil, false
	}

	l.active[id] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.active, id)
			l.mu.Unlock()
		})
	}, true
}
