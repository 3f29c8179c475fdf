package files

import (
	"errors"
	"net/http"

	"github.com/EgorLis/my-files/internal/domain"
	"github.com/EgorLis/my-files/internal/transport/web/logx"
	"github.com/EgorLis/my-files/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-files/internal/transport/web/v1"
)

// Info godoc
// @Summary     Get file metadata
// @Description Только метаданные, без тела; managementKey и location не отдаются.
// @Tags        files
// @Produce     json
// @Param       id path string true "file id"
// @Success     200 {object} fileInfo
// @Failure     404 {object} v1.ErrorBody
// @Router      /files/{id}/info [get]
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	const op = "files.info"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "path", r.URL.Path)

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

	logx.Info(h.Log, reqID, op, "ok", "file_id", id)
	v1.WriteJSON(w, http.StatusOK, fileInfo{
		ID:          rec.ID,
		Name:        rec.Name,
		EncodedName: rec.EncodedName,
		Extension:   rec.Extension,
		Size:        rec.Size,
		CreatedAt:   rec.CreatedAt,
	})
}
