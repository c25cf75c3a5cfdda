package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/identity"
	"github.com/example/art-portfolio/internal/platform/auth"
	"github.com/example/art-portfolio/services/portfolio/internal/comments"
	"github.com/example/art-portfolio/services/portfolio/internal/content"
	"github.com/example/art-portfolio/services/portfolio/internal/livecache"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Comments      *comments.Service
	Live          *livecache.Cache
	Content       *content.Service
	Verifier      auth.JWTVerifier
	Issuer        auth.Issuer
	AdminPassword auth.AdminPassword
	Limiter       *RateLimiter // guards POST /comments; nil disables
	SecureCookies bool
	Log           *zap.Logger

	// AllowedOrigins gates websocket upgrades; empty allows any origin.
	AllowedOrigins []string
}

// Register mounts the portfolio routes. httpserver.SetupRouter must have
// been applied to r first.
func Register(r chi.Router, d Deps) {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	requireAdmin := []func(next http.Handler) http.Handler{auth.RequireToken(d.Verifier), auth.RequireAdmin}

	r.Group(func(r chi.Router) {
		r.Use(identity.SessionMiddleware(d.SecureCookies))

		r.Get("/session", Session())

		r.Get("/comments", ListComments(d.Comments, log))
		if d.Limiter != nil {
			r.With(d.Limiter.Middleware).Post("/comments", CreateComment(d.Comments, log))
		} else {
			r.Post("/comments", CreateComment(d.Comments, log))
		}
		r.With(requireAdmin...).Delete("/comments", DeleteComment(d.Comments, log))
		r.Post("/comments/like", ToggleLike(d.Comments, log))
		r.Get("/comments/thread", Thread(d.Live))
		r.Get("/comments/stream", Stream(d.Live, d.AllowedOrigins, log))
	})

	r.Get("/artworks", ListArtworks(d.Content, log))
	r.Get("/artworks/{id}", GetArtwork(d.Content, log))
	r.Get("/posts", ListPosts(d.Content, log))
	r.Get("/posts/{slug}", GetPost(d.Content, log))
	r.Get("/settings", GetSettings(d.Content, log))

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", AdminLogin(d.AdminPassword, d.Issuer, log))

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin...)
			r.Post("/artworks", SaveArtwork(d.Content, log))
			r.Put("/artworks", SaveArtwork(d.Content, log))
			r.Delete("/artworks/{id}", DeleteArtwork(d.Content, log))
			r.Post("/posts", SavePost(d.Content, log))
			r.Delete("/posts/{id}", DeletePost(d.Content, log))
			r.Put("/settings", SaveSettings(d.Content, log))
			r.Post("/cache/sync", SyncCache(d.Content))
		})
	})
}
