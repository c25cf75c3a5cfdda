package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWriteError_Envelope(t *testing.T) {
	rr := httptest.NewRecorder()
	BadRequest(rr, "MISSING_FIELDS", "targetId is required", "rid-1", map[string]any{"field": "targetId"})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != "MISSING_FIELDS" || body.Error.RequestID != "rid-1" || body.Error.Details["field"] != "targetId" {
		t.Fatalf("unexpected envelope %+v", body.Error)
	}
}

func TestDecodeJSON_RejectsGarbage(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var dst struct{ A string }
	if DecodeJSON(rr, req, "", &dst) {
		t.Fatal("expected decode failure")
	}
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestDecodeJSON_OK(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"x"}`))
	var dst struct {
		A string `json:"a"`
	}
	if !DecodeJSON(rr, req, "", &dst) || dst.A != "x" {
		t.Fatalf("unexpected decode result %+v", dst)
	}
}
