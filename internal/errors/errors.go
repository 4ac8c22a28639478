// errors стандартизирует ответы об ошибках HTTP-слоя bondia-service.
// На вход принимает ошибку сервисного слоя, на выход даёт:
//   - корректный HTTP-статус;
//   - краткий стабильный code и безопасное message без утечки деталей;
//   - для отказов сохранения профиля — стадию и число неудачных загрузок.
//
// Источник истинности по смысловым ошибкам: пакет service.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pribylovaa/bondia/internal/service"
)

// Нестандартный код, часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
// Stage и FailedCount заполняются только для отказов сохранения профиля.
type APIError struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	RequestID   string `json:"request_id,omitempty"`
	Stage       string `json:"stage,omitempty"`
	FailedCount int    `json:"failed_count,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
// Result — частичный результат операции (например, URL уже загруженных изображений).
type ErrorResponse struct {
	Error  APIError `json:"error"`
	Result any      `json:"result,omitempty"`
}

type mapping struct {
	target error
	status int
	code   string
}

// Порядок важен: первое совпадение по errors.Is побеждает.
var table = []mapping{
	{service.ErrInvalidArgument, http.StatusBadRequest, "invalid_argument"},
	{service.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{service.ErrEmptyPassword, http.StatusBadRequest, "empty_password"},
	{service.ErrWeakPassword, http.StatusBadRequest, "weak_password"},
	{service.ErrNotAuthenticated, http.StatusUnauthorized, "unauthenticated"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{service.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{service.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{service.ErrTokenRevoked, http.StatusUnauthorized, "token_revoked"},
	{service.ErrPermissionDenied, http.StatusForbidden, "permission_denied"},
	{service.ErrNotFound, http.StatusNotFound, "not_found"},
	{service.ErrEmailTaken, http.StatusConflict, "email_taken"},
	{service.ErrSaveInProgress, http.StatusConflict, "save_in_progress"},
	{service.ErrImageUpload, http.StatusBadGateway, "image_upload_failed"},
	{service.ErrDocumentWrite, http.StatusBadGateway, "document_write_failed"},
}

// ToHTTP конвертирует ошибку сервисного слоя в HTTP-статус и ответ для фронта.
//
// Поведение:
//   - err == nil — программная ошибка вызова: 500/internal, чтобы не послать
//     "200 OK" с телом ошибки и не маскировать баг;
//   - *service.SaveError — стадия и число неудачных загрузок в ответе;
//     отменённое сохранение — 499, остальные стадии — 502;
//   - context.Canceled — 499, context.DeadlineExceeded — 504;
//   - прочее — 500/internal без деталей.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internal()
	}

	var se *service.SaveError
	if errors.As(err, &se) {
		status := http.StatusBadGateway
		code := se.Stage() + "_failed"

		if errors.Is(se.Kind, service.ErrSaveCanceled) {
			status, code = saveCanceledStatus(se.Err), "canceled"
		}

		return status, ErrorResponse{
			Error: APIError{
				Code:        code,
				Message:     se.Kind.Error(),
				Stage:       se.Stage(),
				FailedCount: se.FailedCount,
			},
		}
	}

	for _, m := range table {
		if errors.Is(err, m.target) {
			return m.status, ErrorResponse{
				Error: APIError{Code: m.code, Message: m.target.Error()},
			}
		}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, ErrorResponse{
			Error: APIError{Code: "canceled", Message: "canceled"},
		}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorResponse{
			Error: APIError{Code: "deadline_exceeded", Message: "deadline exceeded"},
		}
	}

	return internal()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	WriteErrorResult(w, r, err, nil)
}

// WriteErrorResult — как WriteError, но с частичным результатом операции в теле.
func WriteErrorResult(w http.ResponseWriter, r *http.Request, err error, result any) {
	status, resp := ToHTTP(err)
	resp.Result = result

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func saveCanceledStatus(cause error) int {
	if errors.Is(cause, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}

	return StatusClientClosedRequest
}

func internal() (int, ErrorResponse) {
	return http.StatusInternalServerError, ErrorResponse{
		Error: APIError{
			Code:    "internal",
			Message: "internal error",
		},
	}
}
