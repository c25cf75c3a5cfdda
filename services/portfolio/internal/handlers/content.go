package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/platform/api"
	"github.com/example/art-portfolio/internal/platform/httpserver"
	"github.com/example/art-portfolio/services/portfolio/internal/content"
)

func writeContentError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	var ve *content.ValidationError
	switch {
	case errors.As(err, &ve):
		api.BadRequest(w, "INVALID_FIELD", ve.Error(), rid, map[string]any{"field": ve.Field})
	case errors.Is(err, content.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "not found", rid)
	default:
		log.Error("content operation failed", zap.String("request_id", rid), zap.Error(err))
		api.Internal(w, rid)
	}
}

func publishedOnly(r *http.Request) bool {
	return strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("published")), "true")
}

// ListArtworks handles GET /artworks[?published=true]
func ListArtworks(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListArtworks(r.Context(), publishedOnly(r))
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, list)
	}
}

// GetArtwork handles GET /artworks/{id}
func GetArtwork(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := svc.GetArtwork(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, a)
	}
}

// ListPosts handles GET /posts[?published=true]
func ListPosts(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListPosts(r.Context(), publishedOnly(r))
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, list)
	}
}

// GetPost handles GET /posts/{slug}
func GetPost(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetPostBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, p)
	}
}

// GetSettings handles GET /settings
func GetSettings(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := svc.GetSettings(r.Context())
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, s)
	}
}

// SaveArtwork handles POST and PUT /admin/artworks. New artworks get 201.
func SaveArtwork(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in content.Artwork
		if !api.DecodeJSON(w, r, httpserver.RequestIDFromContext(r.Context()), &in) {
			return
		}
		status := http.StatusOK
		if strings.TrimSpace(in.ID) == "" {
			status = http.StatusCreated
		}
		saved, err := svc.SaveArtwork(r.Context(), in)
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, status, saved)
	}
}

// DeleteArtwork handles DELETE /admin/artworks/{id}
func DeleteArtwork(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteArtwork(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// SavePost handles POST /admin/posts
func SavePost(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in content.Post
		if !api.DecodeJSON(w, r, httpserver.RequestIDFromContext(r.Context()), &in) {
			return
		}
		status := http.StatusOK
		if strings.TrimSpace(in.ID) == "" {
			status = http.StatusCreated
		}
		saved, err := svc.SavePost(r.Context(), in)
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, status, saved)
	}
}

// DeletePost handles DELETE /admin/posts/{id}
func DeletePost(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// SaveSettings handles PUT /admin/settings
func SaveSettings(svc *content.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in content.Settings
		if !api.DecodeJSON(w, r, httpserver.RequestIDFromContext(r.Context()), &in) {
			return
		}
		saved, err := svc.SaveSettings(r.Context(), in)
		if err != nil {
			writeContentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, saved)
	}
}

// SyncCache handles POST /admin/cache/sync
func SyncCache(svc *content.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Sync(r.Context())
		api.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}
