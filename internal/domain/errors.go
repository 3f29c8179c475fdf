package domain

import "errors"

// Бизнес-ошибки (маппятся на HTTP коды в transport/web/v1)
var (
	ErrBadParams        = errors.New("bad_params")         // 400
	ErrNoFiles          = errors.New("no_files")           // 400: multipart без файловых частей
	ErrUnauth           = errors.New("unauthorized")       // 401
	ErrForbidden        = errors.New("forbidden")          // 403: неверный management key
	ErrNotFound         = errors.New("not_found")          // 404
	ErrMethodNotAllowed = errors.New("method_not_allowed") // 405
	ErrLengthRequired   = errors.New("length_required")    // 411
	ErrTooLarge         = errors.New("too_large")          // 413: превышен лимит файла/запроса
	ErrNotImplemented   = errors.New("not_implemented")    // 501: нелокальный бэкенд
	ErrUnexpected       = errors.New("unexpected")         // 500
)
