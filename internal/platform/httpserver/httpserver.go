package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server. WriteTimeout covers a full ingestion, which
// waits on vision and embedding calls.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}
}
