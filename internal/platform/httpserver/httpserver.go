package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with sane defaults for the stub backend. No
// blanket write timeout: the notification feed holds its connection open
// indefinitely.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
