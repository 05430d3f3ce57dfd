package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/stk/internal/playlistservice"
)

// maxBodyBytes bounds request bodies; playlists of tens of thousands of
// recordings stay well below it.
const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *playlistservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *playlistservice.Service) *Handler {
	return &Handler{svc: svc}
}

// playlistPath extracts the playlist path from the URL (everything after /api/playlists/).
// Supports encoded slashes (e.g. lists%2Fa.bpl).
func playlistPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListPlaylists handles GET /api/playlists.
//
//	@Summary		List catalogued playlists
//	@Tags			playlists
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	PlaylistListResponse
//	@Security		BearerAuth
//	@Router			/playlists [get]
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	rows, total, err := h.svc.ListPlaylists(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, "list playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, PlaylistListResponse{Playlists: rows, Total: total})
}

// GetPlaylist handles GET /api/playlists/*.
//
//	@Summary		Get a parsed playlist by path
//	@Tags			playlists
//	@Produce		json
//	@Param			path	path		string	true	"Playlist path"
//	@Success		200		{object}	PlaylistDetail
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/playlists/{path} [get]
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	path := playlistPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	p, err := h.svc.GetPlaylist(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get playlist", err)
		return
	}
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	writeJSON(w, http.StatusOK, p)
}

// PutPlaylist handles PUT /api/playlists/*. The file format follows the
// extension of the path.
//
//	@Summary		Create or replace a playlist with optimistic concurrency
//	@Tags			playlists
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Playlist path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	PutPlaylistRequest	true	"Entries"
//	@Success		200		{object}	PlaylistDetail
//	@Success		201		{object}	PlaylistDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/playlists/{path} [put]
func (h *Handler) PutPlaylist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	path := playlistPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req PutPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	// Strip surrounding quotes if present (standard ETag format).
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)

	p, created, err := h.svc.PutPlaylist(r.Context(), path, req.Entries, ifMatch)
	if err != nil {
		writeServiceError(w, "put playlist", err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	w.Header().Set("ETag", `"`+p.Checksum+`"`)
	writeJSON(w, status, p)
}

// DeletePlaylist handles DELETE /api/playlists/*.
//
//	@Summary		Delete a playlist
//	@Tags			playlists
//	@Param			path	path	string	true	"Playlist path"
//	@Success		204		"Playlist deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/playlists/{path} [delete]
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	path := playlistPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeletePlaylist(r.Context(), path); err != nil {
		writeServiceError(w, "delete playlist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MovePlaylist handles POST /api/move.
//
//	@Summary		Rename a playlist inside the library
//	@Tags			playlists
//	@Accept			json
//	@Produce		json
//	@Param			body	body		MoveRequest	true	"Source and target path"
//	@Success		200		{object}	PlaylistDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/move [post]
func (h *Handler) MovePlaylist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.From == "" || req.To == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("from and to are required"))
		return
	}
	p, err := h.svc.MovePlaylist(r.Context(), req.From, req.To)
	if err != nil {
		writeServiceError(w, "move playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// FindRecording handles GET /api/recordings.
//
//	@Summary		Search catalogued recordings by path substring
//	@Tags			recordings
//	@Produce		json
//	@Param			q		query		string	true	"Path fragment"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	RecordingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recordings [get]
func (h *Handler) FindRecording(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.FindRecording(r.Context(), q, limit)
	if err != nil {
		slog.Error("find recording failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, RecordingsResponse{Results: hits})
}

// PlaylistsContaining handles GET /api/recordings/playlists.
//
//	@Summary		List the playlists referencing a recording
//	@Tags			recordings
//	@Produce		json
//	@Param			path	query		string	true	"Recording path"
//	@Success		200		{object}	ContainingResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/recordings/playlists [get]
func (h *Handler) PlaylistsContaining(w http.ResponseWriter, r *http.Request) {
	rec := r.URL.Query().Get("path")
	if rec == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'path' is required"))
		return
	}
	lists, err := h.svc.PlaylistsContaining(r.Context(), rec)
	if err != nil {
		writeServiceError(w, "playlists containing", err)
		return
	}
	writeJSON(w, http.StatusOK, ContainingResponse{Recording: rec, Playlists: lists})
}

// Operate handles POST /api/operate.
//
//	@Summary		Combine two library playlists with and/or/xor/sub
//	@Tags			algebra
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OperateRequest	true	"Operation"
//	@Success		200		{object}	OperateResult
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/operate [post]
func (h *Handler) Operate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req OperateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.Operate(r.Context(), req)
	if err != nil {
		writeServiceError(w, "operate", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
