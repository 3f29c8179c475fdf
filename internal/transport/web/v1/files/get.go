package files

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/EgorLis/my-files/internal/domain"
	"github.com/EgorLis/my-files/internal/transport/web/logx"
	"github.com/EgorLis/my-files/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-files/internal/transport/web/v1"
)

// Get godoc
// @Summary     Get file content (inline)
// @Tags        files
// @Produce     octet-stream
// @Param       id path string true "file id"
// @Success     200 {file} []byte
// @Failure     404 {object} v1.ErrorBody
// @Failure     501 {object} v1.ErrorBody
// @Router      /files/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "inline")
}

// Download godoc
// @Summary     Get file content (attachment)
// @Tags        files
// @Produce     octet-stream
// @Param       id path string true "file id"
// @Success     200 {file} []byte
// @Failure     404 {object} v1.ErrorBody
// @Failure     501 {object} v1.ErrorBody
// @Router      /files/{id}/download [get]
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, "attachment")
}

// stream отдаёт контент файла; режимы inline и attachment отличаются
// только значением Content-Disposition.
func (h *Handler) stream(w http.ResponseWriter, r *http.Request, mode string) {
	const op = "files.get"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "path", r.URL.Path, "mode", mode)

	id := r.PathValue("id")
	if id == "" {
		v1.WriteDomainError(w, domain.ErrBadParams)
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

	if rec.Type != domain.LocationLocal {
		logx.Error(h.Log, reqID, op, "non-local backend", domain.ErrNotImplemented, "file_id", id, "location_type", rec.Type)
		v1.WriteDomainError(w, domain.ErrNotImplemented)
		return
	}

	rc, err := h.Storage.Open(rec.ID)
	if err != nil {
		// строка есть, блоба нет: нарушение консистентности хранилищ,
		// а не обычный 404 — это должен подобрать reconciliation sweep
		logx.Error(h.Log, reqID, op, "blob missing for known record", err, "file_id", id, "location", rec.Location)
		v1.WriteError(w, http.StatusInternalServerError, "storage_inconsistent", "failed to retrieve file from filesystem")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Disposition", disposition(mode, rec))
	w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))
	w.WriteHeader(http.StatusOK)

	// io.Copy прервётся сам, когда клиент отвалится; handle закроет defer
	if _, err := io.Copy(w, rc); err != nil {
		logx.Error(h.Log, reqID, op, "stream aborted", err, "file_id", id)
		return
	}
	logx.Info(h.Log, reqID, op, "ok", "file_id", id, "size", rec.Size)
}
