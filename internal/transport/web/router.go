package web

import (
	"log"
	"net/http"

	"github.com/EgorLis/my-files/internal/transport/web/mw"
	"github.com/EgorLis/my-files/internal/transport/web/v1/files"
	"github.com/EgorLis/my-files/internal/transport/web/v1/health"
)

func newRouter(hh *health.Handler, fh *files.Handler, apiKey string, logger *log.Logger) http.Handler {
	mux := http.NewServeMux()

	// health
	mux.HandleFunc("GET /v1/healthz", hh.Liveness)
	mux.HandleFunc("GET /v1/readyz", hh.Readiness)

	// files
	mux.Handle("POST /upload", mw.RequireKey(apiKey, http.HandlerFunc(fh.Upload)))
	mux.HandleFunc("GET /files/{id}", fh.Get)
	mux.HandleFunc("GET /files/{id}/download", fh.Download)
	mux.HandleFunc("GET /files/{id}/info", fh.Info)
	mux.HandleFunc("DELETE /files/{id}", fh.Delete)

	// 🔗 middleware
	return mw.WithRequestID(mw.CORS(mw.Logging(logger)(mux)))
}
