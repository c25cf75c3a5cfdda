package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/identity"
	"github.com/example/art-portfolio/internal/platform/api"
	"github.com/example/art-portfolio/internal/platform/httpserver"
	"github.com/example/art-portfolio/services/portfolio/internal/comments"
	"github.com/example/art-portfolio/services/portfolio/internal/livecache"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

type commentView struct {
	comments.Comment
	LikedByMe *bool `json:"likedByMe,omitempty"`
}

type threadItem struct {
	Comment commentView   `json:"comment"`
	Replies []commentView `json:"replies"`
}

type threadResponse struct {
	TargetID string       `json:"targetId"`
	Loading  bool         `json:"loading"`
	Version  uint64       `json:"version"`
	Comments []threadItem `json:"comments"`
}

func view(cache *livecache.Cache, c comments.Comment, sessionID string) commentView {
	v := commentView{Comment: c}
	if sessionID != "" {
		liked := cache.HasLiked(c, sessionID)
		v.LikedByMe = &liked
	}
	return v
}

func buildThread(cache *livecache.Cache, targetID, sessionID string) threadResponse {
	nodes := cache.Thread(targetID)
	items := make([]threadItem, 0, len(nodes))
	for _, n := range nodes {
		item := threadItem{Comment: view(cache, n.Comment, sessionID), Replies: make([]commentView, 0, len(n.Replies))}
		for _, rep := range n.Replies {
			item.Replies = append(item.Replies, view(cache, rep, sessionID))
		}
		items = append(items, item)
	}
	return threadResponse{
		TargetID: targetID,
		Loading:  cache.Loading(),
		Version:  cache.Version(),
		Comments: items,
	}
}

// sessionFor prefers an explicit sessionId query param over the cookie.
func sessionFor(r *http.Request) string {
	if sid := strings.TrimSpace(r.URL.Query().Get("sessionId")); sid != "" {
		return sid
	}
	sid, _ := identity.SessionIDFromContext(r.Context())
	return sid
}

// Thread handles GET /comments/thread?targetId=
func Thread(cache *livecache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := strings.TrimSpace(r.URL.Query().Get("targetId"))
		if targetID == "" {
			api.BadRequest(w, "MISSING_FIELDS", "targetId is required", httpserver.RequestIDFromContext(r.Context()),
				map[string]any{"field": "targetId"})
			return
		}
		api.WriteJSON(w, http.StatusOK, buildThread(cache, targetID, sessionFor(r)))
	}
}

// Stream handles GET /comments/stream?targetId= and pushes a thread frame
// on connect and after every snapshot. Browser origins outside
// allowedOrigins are refused during the upgrade.
func Stream(cache *livecache.Cache, allowedOrigins []string, log *zap.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			return httpserver.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return func(w http.ResponseWriter, r *http.Request) {
		targetID := strings.TrimSpace(r.URL.Query().Get("targetId"))
		if targetID == "" {
			api.BadRequest(w, "MISSING_FIELDS", "targetId is required", httpserver.RequestIDFromContext(r.Context()),
				map[string]any{"field": "targetId"})
			return
		}
		sessionID := sessionFor(r)

		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}
		defer ws.Close()

		updates, stop := cache.Watch()
		defer stop()

		// The reader only handles control frames and notices the close.
		gone := make(chan struct{})
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(wsPongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		go func() {
			defer close(gone)
			for {
				if _, _, err := ws.ReadMessage(); err != nil {
					return
				}
			}
		}()

		send := func() bool {
			_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteJSON(buildThread(cache, targetID, sessionID)); err != nil {
				log.Debug("websocket write failed", zap.String("target_id", targetID), zap.Error(err))
				return false
			}
			return true
		}
		if !send() {
			return
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-gone:
				return
			case <-r.Context().Done():
				return
			case _, ok := <-updates:
				if !ok {
					_ = ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
						time.Now().Add(wsWriteWait))
					return
				}
				if !send() {
					return
				}
			case <-ping.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}
}
