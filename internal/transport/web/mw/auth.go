package mw

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireKey — middleware: сравнение Bearer-токена с настроенным API-ключом.
// Пустой ключ в конфиге выключает проверку целиком.
func RequireKey(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		raw := extractBearer(r.Header.Get("Authorization"))
		if raw == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(apiKey)) != 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized","message":"you must send authentication credentials through the authorization header"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func extractBearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
