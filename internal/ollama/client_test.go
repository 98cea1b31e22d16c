package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func generateServer(frames []string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		for _, frame := range frames {
			fmt.Fprintln(w, frame)
		}
	}))
}

func TestGenerate(t *testing.T) {
	srv := generateServer([]string{
		`{"response": "Thought: search", "done": false}`,
		`{"response": " for dragons", "done": true}`,
	})
	defer srv.Close()

	got, err := NewClient(srv.URL).Generate(context.Background(), &GenerateRequest{Model: "m", Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate() unexpected error: %v", err)
	}
	if got != "Thought: search for dragons" {
		t.Errorf("Generate() = %q", got)
	}
}

func TestGenerateStream(t *testing.T) {
	srv := generateServer([]string{
		`{"response": "one", "done": false}`,
		`{"response": "two", "done": false}`,
		`{"response": "", "done": true}`,
	})
	defer srv.Close()

	var chunks []string
	err := NewClient(srv.URL).GenerateStream(context.Background(), &GenerateRequest{Model: "m", Prompt: "p"}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("GenerateStream() unexpected error: %v", err)
	}
	if len(chunks) != 2 || chunks[0] != "one" || chunks[1] != "two" {
		t.Errorf("chunks = %v, want [one two]", chunks)
	}
}

func TestGenerateStreamCallbackAborts(t *testing.T) {
	srv := generateServer([]string{
		`{"response": "one", "done": false}`,
		`{"response": "two", "done": true}`,
	})
	defer srv.Close()

	abort := errors.New("stop")
	err := NewClient(srv.URL).GenerateStream(context.Background(), &GenerateRequest{}, func(string) error {
		return abort
	})
	if !errors.Is(err, abort) {
		t.Errorf("GenerateStream() error = %v, want the callback error", err)
	}
}

func TestGenerateBackendDown(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		_, err := NewClient("http://127.0.0.1:1").Generate(context.Background(), &GenerateRequest{})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Generate() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Generate(context.Background(), &GenerateRequest{})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("Generate() error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("client error is not unavailability", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad model", http.StatusBadRequest)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Generate(context.Background(), &GenerateRequest{})
		if err == nil || errors.Is(err, ErrUnavailable) {
			t.Errorf("Generate() error = %v, want a plain API error", err)
		}
	})
}
