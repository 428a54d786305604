package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bodhiment-quiz/internal/domain"
)

func TestGenerateMCQs(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate-mcqs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"mcqs":[{"question":"2+2?","options":["3","4","5","6"],"correct_answer":"B"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/", time.Second)
	mcqs, err := client.GenerateMCQs(context.Background(), "arithmetic")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if got.InputText != "arithmetic" {
		t.Fatalf("unexpected request body %+v", got)
	}
	if len(mcqs) != 1 || mcqs[0].CorrectAnswer != "B" || len(mcqs[0].Options) != 4 {
		t.Fatalf("unexpected mcqs %+v", mcqs)
	}
}

func TestGenerateMCQsErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"bad input"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GenerateMCQs(context.Background(), "x")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "bad input" {
		t.Fatalf("expected api error with message, got %v", err)
	}
	if err.Error() != "bad input" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestGenerateMCQsBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model overloaded"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GenerateMCQs(context.Background(), "x")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusInternalServerError || apiErr.Message != "model overloaded" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestGenerateMCQsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"mcqs":[]}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second).GenerateMCQs(context.Background(), "x")
	if !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions, got %v", err)
	}
}

func TestGenerateMCQsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, time.Second).GenerateMCQs(context.Background(), "x")
	if !errors.Is(err, domain.ErrGenerationFailed) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}
