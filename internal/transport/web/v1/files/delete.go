package files

import (
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/EgorLis/my-files/internal/domain"
	"github.com/EgorLis/my-files/internal/transport/web/logx"
	"github.com/EgorLis/my-files/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-files/internal/transport/web/v1"
)

// Delete godoc
// @Summary     Delete file
// @Description Требует managementKey, выданный при создании.
// @Tags        files
// @Param       id path string true "file id"
// @Param       managementKey query string true "management key"
// @Success     204
// @Failure     400 {object} v1.ErrorBody
// @Failure     403 {object} v1.ErrorBody
// @Failure     404 {object} v1.ErrorBody
// @Failure     501 {object} v1.ErrorBody
// @Router      /files/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "files.delete"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "path", r.URL.Path)

	id := r.PathValue("id")
	if id == "" {
		v1.WriteDomainError(w, domain.ErrBadParams)
		return
	}

	key := r.URL.Query().Get("managementKey")
	if key == "" {
		logx.Error(h.Log, reqID, op, "missing management key", domain.ErrBadParams, "file_id", id)
		v1.WriteError(w, http.StatusBadRequest, "bad_params", "query param 'managementKey' must be provided to delete files")
		return
	}

	rec, err := h.record(r.Context(), reqID, op, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logx.Info(h.Log, reqID, op, "not found", "file_id", id)
			v1.WriteDomainError(w, domain.ErrNotFound)
			return
		}
		logx.Error(h.Log, reqID, op, "lookup failed", err, "file_id", id)
		v1.WriteDomainError(w, domain.ErrUnexpected)
		return
	}

	if subtle.ConstantTimeCompare([]byte(key), []byte(rec.Key)) != 1 {
		logx.Error(h.Log, reqID, op, "invalid management key", domain.ErrForbidden, "file_id", id)
		v1.WriteDomainError(w, domain.ErrForbidden)
		return
	}

	if rec.Type != domain.LocationLocal {
		logx.Error(h.Log, reqID, op, "non-local backend", domain.ErrNotImplemented, "file_id", id, "location_type", rec.Type)
		v1.WriteDomainError(w, domain.ErrNotImplemented)
		return
	}

	// Порядок: сначала строка леджера (в транзакции), потом блоб.
	// Блоб-без-строки клиентам не виден и подбирается sweep'ом;
	// строка-без-блоба ломала бы читателей — поэтому не наоборот.
	if err := h.Repo.DeleteFile(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			v1.WriteDomainError(w, domain.ErrNotFound)
			return
		}
		logx.Error(h.Log, reqID, op, "ledger delete failed", err, "file_id", id)
		v1.WriteDomainError(w, domain.ErrUnexpected)
		return
	}

	if err := h.Storage.Delete(id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		// строка уже удалена и закоммичена: ошибку блоба только логируем
		logx.Error(h.Log, reqID, op, "blob delete failed", err, "file_id", id)
	}

	_ = h.Cache.Del(r.Context(), domain.CacheKeyFileMeta(id))

	logx.Info(h.Log, reqID, op, "ok", "file_id", id)
	w.WriteHeader(http.StatusNoContent)
}
