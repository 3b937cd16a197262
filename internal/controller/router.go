package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.HandleFunc("/ws", c.serveWS)
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
