package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/example/art-portfolio/internal/docstore"
	"github.com/example/art-portfolio/services/portfolio/internal/comments"
)

func TestStream_PushesThreadFrames(t *testing.T) {
	env := newEnv(t, docstore.NewMemoryStore())
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	waitCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := env.live.WaitReady(waitCtx); err != nil {
		t.Fatal(err)
	}

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/comments/stream?targetId=art1"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))

	var first threadResponse
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.TargetID != "art1" || len(first.Comments) != 0 {
		t.Fatalf("unexpected initial frame %+v", first)
	}

	created, err := env.comments.Create(context.Background(), comments.CreateInput{
		TargetID: "art1", TargetType: comments.TargetArtwork, Content: "live!",
	})
	if err != nil {
		t.Fatal(err)
	}

	for {
		var frame threadResponse
		if err := ws.ReadJSON(&frame); err != nil {
			t.Fatalf("read update frame: %v", err)
		}
		if len(frame.Comments) == 1 {
			if frame.Comments[0].Comment.ID != created.ID {
				t.Fatalf("unexpected comment in frame %+v", frame.Comments[0])
			}
			return
		}
	}
}

func TestStream_RequiresTarget(t *testing.T) {
	env := newEnv(t, docstore.NewMemoryStore())
	rr := env.do(t, "GET", "/comments/stream", "", "")
	if rr.Code != 400 {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestStream_ChecksOrigin(t *testing.T) {
	env := newEnv(t, docstore.NewMemoryStore())
	srv := httptest.NewServer(Stream(env.live, []string{"https://studio.example.com"}, zap.NewNop()))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?targetId=art1"

	header := http.Header{}
	header.Set("Origin", "https://evil.example.net")
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("expected foreign origin to be refused")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	header.Set("Origin", "https://studio.example.com")
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("dial from allowed origin: %v", err)
	}
	defer ws.Close()
	_ = ws.SetReadDeadline(time.Now().Add(3 * time.Second))
	var first threadResponse
	if err := ws.ReadJSON(&first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.TargetID != "art1" {
		t.Fatalf("unexpected frame %+v", first)
	}
}
