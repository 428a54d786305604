package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
)

type stubSource struct {
	mcqs []domain.RawMCQ
}

func (s stubSource) GenerateMCQs(context.Context, string) ([]domain.RawMCQ, error) {
	return s.mcqs, nil
}

func newPlayHost() *app.Host {
	return app.NewHost(app.HostConfig{
		Source: stubSource{mcqs: []domain.RawMCQ{
			{Question: "Capital of France?", Options: []string{"Rome", "Paris", "Oslo", "Bern"}, CorrectAnswer: "B"},
			{Question: "2 + 2?", Options: []string{"3", "5", "4", "22"}, CorrectAnswer: "C"},
		}},
		Settings: app.Settings{QuestionSeconds: 30, RevealDelay: 5 * time.Millisecond},
	})
}

func TestPlayQuizPrintsSummary(t *testing.T) {
	host := newPlayHost()
	defer host.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := playQuiz(ctx, host, "geography and arithmetic", strings.NewReader("b\n1\n"), &out); err != nil {
		t.Fatalf("play: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Question 1/2 (30s): Capital of France?",
		"B) Paris",
		"Correct! Score 10, streak 1",
		"Incorrect. The answer was C) 4",
		"Score: 10  Max streak: 1  Accuracy: 50%",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestPlayQuizStopsWhenInputCloses(t *testing.T) {
	host := newPlayHost()
	defer host.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	if err := playQuiz(ctx, host, "anything", strings.NewReader(""), &out); err == nil {
		t.Fatalf("expected error when input closes early")
	}
	if host.Session() != nil {
		t.Fatalf("expected session to be discarded")
	}
}

func TestPlayQuizReportsTimeout(t *testing.T) {
	host := app.NewHost(app.HostConfig{
		Source: stubSource{mcqs: []domain.RawMCQ{
			{Question: "Capital of France?", Options: []string{"Rome", "Paris", "Oslo", "Bern"}, CorrectAnswer: "B"},
		}},
		Settings: app.Settings{QuestionSeconds: 1, RevealDelay: 5 * time.Millisecond},
	})
	defer host.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// An open reader that never answers.
	in, w := io.Pipe()
	defer w.Close()

	var out bytes.Buffer
	if err := playQuiz(ctx, host, "geography", in, &out); err != nil {
		t.Fatalf("play: %v", err)
	}
	got := out.String()
	for _, want := range []string{
		"Time's up. The answer was B) Paris",
		"Score: 0  Max streak: 0  Accuracy: 0%",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestParseChoice(t *testing.T) {
	cases := map[string]int{"A": 0, "b": 1, " C ": 2, "4": 3}
	for in, want := range cases {
		got, err := parseChoice(in)
		if err != nil || got != want {
			t.Fatalf("parseChoice(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"", "AB", "0", "?"} {
		if _, err := parseChoice(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}
