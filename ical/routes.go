package ical

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func Routes(version, path string) http.Handler {
	h := NewHandler(version, path)
	r := chi.NewRouter()
	r.Get("/", h.ServeHTTP)
	r.Get("/{year}", h.ServeHTTP)
	return r
}
