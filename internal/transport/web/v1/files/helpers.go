package files

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/EgorLis/my-files/internal/domain"
	"github.com/EgorLis/my-files/internal/transport/web/logx"
)

// splitName делит клиентское имя файла на имя и расширение.
// Расширение — с ведущей точкой; длиннее 10 символов в схему не влезает,
// тогда считаем его частью имени.
func splitName(filename string) (name, ext string) {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext = filepath.Ext(base)
	if len(ext) > 10 {
		ext = ""
	}
	name = strings.TrimSuffix(base, ext)
	if name == "" {
		// dotfile вроде ".env": точка — часть имени, не расширение
		name, ext = base, ""
	}
	return name, ext
}

// encodeName — percent-encoding имени по правилам encodeURIComponent:
// не кодируются только A-Za-z0-9 и - _ . ! ~ * ' ( ).
// Нужен для filename* в Content-Disposition (RFC 5987) и поля encodedName.
func encodeName(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			sb.WriteByte(c)
		case c == '-' || c == '_' || c == '.' || c == '!' || c == '~' ||
			c == '*' || c == '\'' || c == '(' || c == ')':
			sb.WriteByte(c)
		default:
			fmt.Fprintf(&sb, "%%%02X", c)
		}
	}
	return sb.String()
}

// disposition собирает Content-Disposition в формате оригинального API:
// ASCII-имя, percent-encoded имя и заявленный размер.
func disposition(mode string, rec domain.FileRecord) string {
	return fmt.Sprintf("%s; filename=%s%s; filename*=UTF-8''%s%s; size=%d",
		mode, rec.Name, rec.Extension, rec.EncodedName, rec.Extension, rec.Size)
}

// record достаёт метаданные: сначала кеш, потом леджер.
// Ошибки кеша не фатальны — логируем и идём в БД.
func (h *Handler) record(ctx context.Context, reqID, op, id string) (domain.FileRecord, error) {
	ckey := domain.CacheKeyFileMeta(id)
	if b, err := h.Cache.Get(ctx, ckey); err != nil {
		logx.Error(h.Log, reqID, op, "cache get failed", err, "file_id", id)
	} else if len(b) > 0 {
		var rec domain.FileRecord
		if err := json.Unmarshal(b, &rec); err == nil {
			return rec, nil
		}
	}

	rec, err := h.Repo.FileByID(ctx, id)
	if err != nil {
		return domain.FileRecord{}, err
	}

	if buf, err := json.Marshal(rec); err == nil {
		_ = h.Cache.Set(ctx, ckey, buf, h.MetaTTL)
	}
	return rec, nil
}
