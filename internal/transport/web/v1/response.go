package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/EgorLis/my-files/internal/domain"
)

// Тело ошибки: machine-readable cause + текст для человека
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MapDomainError решает HTTP-статус + тело по доменной ошибке
func MapDomainError(err error) (int, ErrorBody) {
	switch {
	case errors.Is(err, domain.ErrNoFiles):
		return http.StatusBadRequest, ErrorBody{Error: "no_files", Message: "no files were uploaded"}
	case errors.Is(err, domain.ErrBadParams):
		return http.StatusBadRequest, ErrorBody{Error: "bad_params", Message: "bad params"}
	case errors.Is(err, domain.ErrUnauth):
		return http.StatusUnauthorized, ErrorBody{Error: "unauthorized", Message: "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "forbidden", Message: "invalid management key"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "not_found", Message: "file not found"}
	case errors.Is(err, domain.ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, ErrorBody{Error: "method_not_allowed", Message: "method not allowed"}
	case errors.Is(err, domain.ErrLengthRequired):
		return http.StatusLengthRequired, ErrorBody{Error: "length_required", Message: "content-length header must be provided"}
	case errors.Is(err, domain.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, ErrorBody{Error: "too_large", Message: "payload exceeds the configured size limit"}
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented, ErrorBody{Error: "not_implemented", Message: "non-local files are not implemented yet"}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: "unexpected", Message: "unexpected error"}
	}
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, cause, message string) {
	WriteJSON(w, status, ErrorBody{Error: cause, Message: message})
}

func WriteDomainError(w http.ResponseWriter, err error) {
	status, body := MapDomainError(err)
	WriteJSON(w, status, body)
}
