package analytics

import (
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type recordingSink struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (s *recordingSink) Publish(subject string, data []byte) error {
	s.subjects = append(s.subjects, subject)
	s.payloads = append(s.payloads, data)
	return s.err
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher
	p.Publish(SubjectCommentCreated, "comment_created", "sid", nil)
	New(nil, nil).Publish(SubjectCommentCreated, "comment_created", "sid", nil)
}

func TestPublisher_Envelope(t *testing.T) {
	sink := &recordingSink{}
	New(sink, zap.NewNop()).Publish(SubjectCommentLiked, "comment_liked", "sid-1", map[string]any{"comment_id": "c1"})

	if len(sink.subjects) != 1 || sink.subjects[0] != SubjectCommentLiked {
		t.Fatalf("unexpected subjects %v", sink.subjects)
	}
	var ev Event
	if err := json.Unmarshal(sink.payloads[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.EventID == "" || ev.EventName != "comment_liked" || ev.SessionID != "sid-1" || ev.Properties["comment_id"] != "c1" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestPublisher_SwallowsErrors(t *testing.T) {
	sink := &recordingSink{err: errors.New("nats down")}
	New(sink, zap.NewNop()).Publish(SubjectCommentDeleted, "comment_deleted", "", nil)
	if len(sink.subjects) != 1 {
		t.Fatal("expected one publish attempt")
	}
}
