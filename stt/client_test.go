package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.aimuz.me/rimay/internal/types"
)

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("NewClient() error = %v, want ErrNoAPIKey", err)
	}
}

func TestClientTranscribe(t *testing.T) {
	clip := []byte("RIFF....WAVEfmt fake clip")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("path = %s, want /audio/transcriptions", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk-test" {
			t.Errorf("Authorization = %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fields := map[string]string{
			"model":           "whisper-large-v3-turbo",
			"language":        "en",
			"prompt":          "Kubernetes",
			"response_format": "json",
		}
		for k, want := range fields {
			if got := r.FormValue(k); got != want {
				t.Errorf("field %s = %q, want %q", k, got, want)
			}
		}

		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		if hdr.Filename != "audio.wav" {
			t.Errorf("filename = %q, want audio.wav", hdr.Filename)
		}
		body, _ := io.ReadAll(f)
		if string(body) != string(clip) {
			t.Errorf("uploaded clip = %q", body)
		}

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":"  hello world \n","x_groq":{"id":"req_1"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "gsk-test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	got, err := c.Transcribe(context.Background(), clip, types.TranscribeOptions{
		Model:    "whisper-large-v3-turbo",
		Language: "en",
		Prompt:   "Kubernetes",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Transcribe() = %q, want %q", got, "hello world")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want 1", n)
	}
}

func TestClientOmitsEmptyOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		for _, k := range []string{"language", "prompt"} {
			if _, ok := r.MultipartForm.Value[k]; ok {
				t.Errorf("unexpected field %s", k)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"text":""}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	got, err := c.Transcribe(context.Background(), []byte("clip"), types.TranscribeOptions{Model: "m1"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got != "" {
		t.Errorf("Transcribe() = %q, want empty", got)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"message":"over capacity","type":"server_error"}}`)
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	if _, err := c.Transcribe(context.Background(), []byte("clip"), types.TranscribeOptions{Model: "m1"}); err == nil {
		t.Fatal("expected error from failing endpoint")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server called %d times, want exactly 1", n)
	}
}

func TestClientRequiresModel(t *testing.T) {
	c, err := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := c.Transcribe(context.Background(), []byte("clip"), types.TranscribeOptions{}); err == nil {
		t.Fatal("expected error for empty model")
	}
}
