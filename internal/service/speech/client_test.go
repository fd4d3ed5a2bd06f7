package speech

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTranscribeHappyPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transcribe" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		file, header, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("missing audio part: %v", err)
		}
		defer file.Close()
		if header.Filename != "call.wav" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"text": " 환불하고 싶어요 "}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	text, err := client.Transcribe(context.Background(), "call.wav", strings.NewReader("fake-audio"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "환불하고 싶어요" {
		t.Fatalf("expected trimmed transcription, got %q", text)
	}
}

func TestTranscribeNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.Transcribe(context.Background(), "call.wav", strings.NewReader("fake")); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}

func TestTranscribeUnreachableService(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond)

	if _, err := client.Transcribe(context.Background(), "call.wav", strings.NewReader("fake")); err == nil {
		t.Fatalf("expected error when service is unreachable")
	}
}

func TestTranscribeBrokenResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("not-json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	if _, err := client.Transcribe(context.Background(), "call.wav", strings.NewReader("fake")); err == nil {
		t.Fatalf("expected decode error")
	}
}
