package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/stk/internal/playlistservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *playlistservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Playlists.
	r.Get("/playlists", h.ListPlaylists)
	r.Get("/playlists/*", h.GetPlaylist)
	r.Put("/playlists/*", h.PutPlaylist)
	r.Delete("/playlists/*", h.DeletePlaylist)
	r.Post("/move", h.MovePlaylist)

	// Recordings.
	r.Get("/recordings", h.FindRecording)
	r.Get("/recordings/playlists", h.PlaylistsContaining)

	// Set algebra.
	r.Post("/operate", h.Operate)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
