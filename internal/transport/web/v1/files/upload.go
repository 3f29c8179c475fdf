package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/EgorLis/my-files/internal/domain"
	"github.com/EgorLis/my-files/internal/transport/web/logx"
	"github.com/EgorLis/my-files/internal/transport/web/mw"
	v1 "github.com/EgorLis/my-files/internal/transport/web/v1"
)

// Upload godoc
// @Summary     Upload files
// @Description multipart/form-data; каждая файловая часть сохраняется отдельным объектом.
// @Tags        files
// @Accept      multipart/form-data
// @Produce     json
// @Param       file formData file true "файлы (частей может быть несколько)"
// @Success     201 {object} map[string][]fileCreated
// @Failure     400 {object} v1.ErrorBody
// @Failure     401 {object} v1.ErrorBody
// @Failure     411 {object} v1.ErrorBody
// @Failure     413 {object} v1.ErrorBody
// @Failure     500 {object} v1.ErrorBody
// @Router      /upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "files.upload"
	reqID := mw.RequestIDFromCtx(r.Context())
	logx.Info(h.Log, reqID, op, "start", "method", r.Method, "path", r.URL.Path)

	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/form-data") {
		logx.Error(h.Log, reqID, op, "bad content type", domain.ErrBadParams, "content_type", r.Header.Get("Content-Type"))
		v1.WriteError(w, http.StatusBadRequest, "bad_params", "content-type header must be multipart/form-data")
		return
	}
	boundary := params["boundary"]
	if boundary == "" {
		logx.Error(h.Log, reqID, op, "missing boundary", domain.ErrBadParams)
		v1.WriteError(w, http.StatusBadRequest, "bad_params", "multipart boundary must be provided")
		return
	}

	// Content-Length обязателен; самим значением для подсчёта размеров
	// не пользуемся — только для раннего отказа заведомо больших тел.
	if r.Header.Get("Content-Length") == "" || r.ContentLength < 0 {
		logx.Error(h.Log, reqID, op, "missing content length", domain.ErrLengthRequired)
		v1.WriteDomainError(w, domain.ErrLengthRequired)
		return
	}
	if r.ContentLength > h.MaxRequestSize {
		logx.Error(h.Log, reqID, op, "request too large", domain.ErrTooLarge, "content_length", r.ContentLength)
		v1.WriteError(w, http.StatusRequestEntityTooLarge, "too_large",
			fmt.Sprintf("request body must be less than %d bytes", h.MaxRequestSize))
		return
	}

	// жёсткий лимит на чтение тела, даже если Content-Length соврал
	body := http.MaxBytesReader(w, r.Body, h.MaxRequestSize)
	mr := multipart.NewReader(body, boundary)

	recs, err := h.ingest(r.Context(), reqID, mr)
	if err != nil {
		logx.Error(h.Log, reqID, op, "ingest failed", err)
		v1.WriteDomainError(w, err)
		return
	}

	out := make([]fileCreated, 0, len(recs))
	for _, rec := range recs {
		out = append(out, fileCreated{
			ID:            rec.ID,
			Name:          rec.Name,
			EncodedName:   rec.EncodedName,
			Extension:     rec.Extension,
			Size:          rec.Size,
			ManagementKey: rec.Key,
			CreatedAt:     rec.CreatedAt,
		})
	}
	logx.Info(h.Log, reqID, op, "ok", "count", len(out))
	v1.WriteJSON(w, http.StatusCreated, map[string][]fileCreated{"files": out})
}

// ingest — конвейер загрузки: части читаются строго по порядку, каждая
// файловая часть пишется в хранилище, метаданные копятся в pending и
// уходят в леджер одной пачкой только после полного разбора тела.
//
// Компенсация: любая ошибка на любом шаге удаляет все уже записанные
// блобы этого запроса до того, как ошибка уйдёт наружу. Частичная пачка
// в леджер не попадает никогда.
func (h *Handler) ingest(ctx context.Context, reqID string, mr *multipart.Reader) ([]domain.FileRecord, error) {
	const op = "files.ingest"

	var pending []domain.FileRecord
	var written []string // ids сохранённых блобов — список компенсации

	cleanup := func() {
		for _, id := range written {
			if err := h.Storage.Delete(id); err != nil && !errors.Is(err, domain.ErrNotFound) {
				// запрос уже упал по другой причине: не эскалируем,
				// осиротевший блоб подберёт внешний sweep
				logx.Error(h.Log, reqID, op, "compensate delete failed", err, "file_id", id)
			}
		}
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("%w: next part: %v", domain.ErrBadParams, err)
		}
		if part.FileName() == "" {
			// непоточные поля формы нам не нужны: дочитываем и идём дальше
			_, _ = io.Copy(io.Discard, part)
			part.Close()
			continue
		}

		rec, err := h.saveFilePart(part)
		part.Close()
		if err != nil {
			cleanup()
			return nil, err
		}
		written = append(written, rec.ID)
		pending = append(pending, rec)
		logx.Info(h.Log, reqID, op, "file stored", "file_id", rec.ID, "size", rec.Size)
	}

	if len(pending) == 0 {
		return nil, domain.ErrNoFiles
	}

	out, err := h.Repo.CreateFiles(ctx, pending)
	if err != nil {
		// блобы уже долговечны, но записи не видны — убираем блобы
		cleanup()
		return nil, fmt.Errorf("%w: insert batch: %v", domain.ErrUnexpected, err)
	}
	return out, nil
}

// saveFilePart пишет одну файловую часть в хранилище с контролем лимита
// прямо по ходу чтения. Возвращённая запись ещё не в леджере.
func (h *Handler) saveFilePart(part *multipart.Part) (domain.FileRecord, error) {
	var zero domain.FileRecord

	id := domain.NewFileID()
	key := domain.NewManagementKey()

	bw, err := h.Storage.Create(id)
	if err != nil {
		return zero, fmt.Errorf("%w: create blob: %v", domain.ErrUnexpected, err)
	}

	// лимит+1: ровно MaxFileSize байт — валидный файл,
	// первый лишний байт обрывает часть, не дочитывая хвост
	tw := &errTrackWriter{w: bw}
	n, err := io.Copy(tw, io.LimitReader(part, h.MaxFileSize+1))
	if err != nil {
		_ = bw.Abort()
		if tw.err != nil {
			return zero, fmt.Errorf("%w: write blob: %v", domain.ErrUnexpected, err)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return zero, fmt.Errorf("%w: request body limit hit", domain.ErrTooLarge)
		}
		return zero, fmt.Errorf("%w: read part: %v", domain.ErrBadParams, err)
	}
	if n > h.MaxFileSize {
		_ = bw.Abort()
		return zero, fmt.Errorf("%w: file exceeds %d bytes", domain.ErrTooLarge, h.MaxFileSize)
	}

	if err := bw.Save(); err != nil {
		_ = bw.Abort()
		return zero, fmt.Errorf("%w: save blob: %v", domain.ErrUnexpected, err)
	}

	name, ext := splitName(part.FileName())
	return domain.FileRecord{
		ID:          id,
		Name:        name,
		EncodedName: encodeName(name),
		Extension:   ext,
		Size:        n,
		Location:    h.Storage.Location(id),
		Type:        domain.LocationLocal,
		Key:         key,
	}, nil
}

// errTrackWriter отличает ошибку записи в хранилище от ошибки чтения части
type errTrackWriter struct {
	w   io.Writer
	err error
}

func (t *errTrackWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}
