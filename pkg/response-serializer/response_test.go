package serializer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSuccessful(t *testing.T) {
	for code, want := range map[int]bool{199: false, 200: true, 204: true, 300: true, 301: false, 404: false, 500: false} {
		if got := (Response{StatusCode: code}).Successful(); got != want {
			t.Fatalf("Status %d: successful is %v", code, got)
		}
	}
}

func TestWriteTo(t *testing.T) {
	res := Response{
		StatusCode: 201,
		Header:     http.Header{"Content-Type": {"text/plain"}, "Content-Length": {"999"}},
		Body:       []byte("This is the body"),
	}
	rec := httptest.NewRecorder()
	if _, err := res.WriteTo(rec, http.Header{"X-Cache-Status": {"HIT"}}); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if rec.Code != 201 {
		t.Fatalf("Status: %d", rec.Code)
	}
	if rec.Body.String() != "This is the body" {
		t.Fatalf("Body: %s", rec.Body.String())
	}
	if rec.Header().Get("Content-Type") != "text/plain" || rec.Header().Get("X-Cache-Status") != "HIT" {
		t.Fatalf("Headers: %+v", rec.Header())
	}
	if rec.Header().Get("Content-Length") != "" {
		t.Fatalf("Stale content length copied: %+v", rec.Header())
	}
}

func TestJSONKeepsBinaryBody(t *testing.T) {
	res := Response{StatusCode: 200, Body: []byte{0, 1, 2, 255}}
	b, err := json.Marshal(res)
	if err != nil {
		t.Fatal(err)
	}
	var res2 Response
	if err := json.Unmarshal(b, &res2); err != nil {
		t.Fatal(err)
	}
	if string(res2.Body) != string(res.Body) {
		t.Fatalf("Body changed: %v", res2.Body)
	}
}
