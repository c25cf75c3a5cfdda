package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/identity"
	"github.com/example/art-portfolio/internal/platform/api"
	"github.com/example/art-portfolio/internal/platform/httpserver"
	"github.com/example/art-portfolio/services/portfolio/internal/comments"
)

type createCommentRequest struct {
	TargetID   string  `json:"targetId"`
	TargetType string  `json:"targetType"`
	Content    string  `json:"content"`
	AuthorName string  `json:"authorName,omitempty"`
	ParentID   *string `json:"parentId,omitempty"`
}

type likeRequest struct {
	CommentID string `json:"commentId"`
	SessionID string `json:"sessionId"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// writeCommentError maps comment domain errors onto the API envelope.
func writeCommentError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	rid := httpserver.RequestIDFromContext(r.Context())
	var ve *comments.ValidationError
	switch {
	case errors.As(err, &ve):
		code := "INVALID_FIELD"
		if ve.Reason == "is required" {
			code = "MISSING_FIELDS"
		}
		api.BadRequest(w, code, ve.Error(), rid, map[string]any{"field": ve.Field})
	case errors.Is(err, comments.ErrNotFound):
		api.NotFound(w, "NOT_FOUND", "comment not found", rid)
	default:
		log.Error("comment operation failed", zap.String("request_id", rid), zap.Error(err))
		api.Internal(w, rid)
	}
}

// ListComments handles GET /comments?targetId=&targetType= and GET /comments?all=true
func ListComments(svc *comments.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var (
			list []comments.Comment
			err  error
		)
		if strings.EqualFold(strings.TrimSpace(q.Get("all")), "true") {
			list, err = svc.ListAll(r.Context())
		} else {
			list, err = svc.List(r.Context(), q.Get("targetId"), comments.TargetType(strings.TrimSpace(q.Get("targetType"))))
		}
		if err != nil {
			writeCommentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, list)
	}
}

// CreateComment handles POST /comments
func CreateComment(svc *comments.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		var req createCommentRequest
		if !api.DecodeJSON(w, r, rid, &req) {
			return
		}
		in := comments.CreateInput{
			TargetID:   req.TargetID,
			TargetType: comments.TargetType(strings.TrimSpace(req.TargetType)),
			Content:    req.Content,
			AuthorName: req.AuthorName,
		}
		if req.ParentID != nil {
			in.ParentID = *req.ParentID
		}
		in.SessionID, _ = identity.SessionIDFromContext(r.Context())

		created, err := svc.Create(r.Context(), in)
		if err != nil {
			writeCommentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusCreated, created)
	}
}

// DeleteComment handles DELETE /comments?id= (admin only)
func DeleteComment(svc *comments.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), r.URL.Query().Get("id")); err != nil {
			writeCommentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// ToggleLike handles POST /comments/like
func ToggleLike(svc *comments.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		var req likeRequest
		if !api.DecodeJSON(w, r, rid, &req) {
			return
		}
		res, err := svc.ToggleLike(r.Context(), req.CommentID, req.SessionID)
		if err != nil {
			writeCommentError(w, r, log, err)
			return
		}
		api.WriteJSON(w, http.StatusOK, res)
	}
}
