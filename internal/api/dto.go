package api

import (
	"github.com/starford/stk/internal/bpl"
	"github.com/starford/stk/internal/catalog"
	"github.com/starford/stk/internal/playlistservice"
)

// PutPlaylistRequest is the request body for writing a playlist.
type PutPlaylistRequest struct {
	Entries []bpl.Entry `json:"entries" validate:"required"`
}

// MoveRequest is the request body for renaming a playlist.
type MoveRequest struct {
	From string `json:"from" example:"lists/a.bpl" validate:"required"`
	To   string `json:"to" example:"archive/a.bpl" validate:"required"`
}

// PlaylistDetail is the full playlist response type (aliased from the domain layer).
type PlaylistDetail = playlistservice.PlaylistDetail

// OperateRequest is the request body of POST /api/operate (aliased from the domain layer).
type OperateRequest = playlistservice.OperateRequest

// OperateResult is the response of POST /api/operate (aliased from the domain layer).
type OperateResult = playlistservice.OperateResult

// PlaylistListResponse wraps paginated playlist listings.
type PlaylistListResponse struct {
	Playlists []catalog.PlaylistRow `json:"playlists" validate:"required"`
	Total     int                   `json:"total" example:"42" validate:"required"`
}

// RecordingsResponse wraps recording search hits.
type RecordingsResponse struct {
	Results []catalog.RecordingHit `json:"results" validate:"required"`
}

// ContainingResponse lists the playlists referencing one recording.
type ContainingResponse struct {
	Recording string   `json:"recording"`
	Playlists []string `json:"playlists" validate:"required"`
}
