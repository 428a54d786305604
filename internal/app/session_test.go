package app_test

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"bodhiment-quiz/internal/app"
	"bodhiment-quiz/internal/domain"
)

func TestSessionAllCorrect(t *testing.T) {
	sched := app.NewManualScheduler()
	var summaries []domain.Summary
	session := newStartedSession(t, sched, sampleQuestions(3), func(s domain.Summary) {
		summaries = append(summaries, s)
	})

	for i := 0; i < 3; i++ {
		if session.Phase() != domain.PhaseInProgress {
			t.Fatalf("question %d: expected in progress, got %s", i, session.Phase())
		}
		outcome, err := session.Select(1)
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if !outcome.Accepted || !outcome.Correct || outcome.Awarded != 10 {
			t.Fatalf("unexpected outcome %+v", outcome)
		}
		sched.Advance(domain.RevealDelay)
	}

	if session.Phase() != domain.PhaseComplete {
		t.Fatalf("expected complete, got %s", session.Phase())
	}
	if session.CurrentIndex() != 3 {
		t.Fatalf("expected current index 3, got %d", session.CurrentIndex())
	}
	summary := session.Summary()
	if summary.Score != 30 || summary.MaxStreak != 3 || summary.Accuracy != 100 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if len(summaries) != 1 || summaries[0] != summary {
		t.Fatalf("expected one completion report, got %+v", summaries)
	}
	if sched.Pending() != 0 {
		t.Fatalf("expected no pending timers after completion, got %d", sched.Pending())
	}
}

func TestSessionTimeoutThenWrong(t *testing.T) {
	sched := app.NewManualScheduler()
	session := newStartedSession(t, sched, sampleQuestions(2), nil)

	sched.Advance(30 * time.Second)
	view := session.View()
	if view.Phase != domain.PhaseInProgress || view.QuestionNumber != 2 {
		t.Fatalf("expected second question after timeout, got %+v", view)
	}
	if view.SecondsRemaining != 30 || view.SelectedAnswer != nil {
		t.Fatalf("expected fresh countdown, got %+v", view)
	}

	outcome, err := session.Select(0)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if !outcome.Accepted || outcome.Correct {
		t.Fatalf("expected accepted wrong answer, got %+v", outcome)
	}
	sched.Advance(domain.RevealDelay)

	summary := session.Summary()
	if session.Phase() != domain.PhaseComplete {
		t.Fatalf("expected complete, got %s", session.Phase())
	}
	if summary.Score != 0 || summary.MaxStreak != 0 || summary.Accuracy != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSessionTimeoutOnLastQuestionCompletes(t *testing.T) {
	sched := app.NewManualScheduler()
	completed := 0
	session := newStartedSession(t, sched, sampleQuestions(1), func(domain.Summary) { completed++ })

	sched.Advance(30 * time.Second)
	if session.Phase() != domain.PhaseComplete || completed != 1 {
		t.Fatalf("expected completion after timeout, phase=%s completed=%d", session.Phase(), completed)
	}
}

func TestSessionCountdown(t *testing.T) {
	sched := app.NewManualScheduler()
	session := newStartedSession(t, sched, sampleQuestions(2), nil)

	sched.Advance(10 * time.Second)
	view := session.View()
	if view.SecondsRemaining != 20 || view.ElapsedSeconds != 10 {
		t.Fatalf("expected 20s remaining and 10s elapsed, got %+v", view)
	}
}

func TestSessionSelectPausesTimer(t *testing.T) {
	sched := app.NewManualScheduler()
	session := newStartedSession(t, sched, sampleQuestions(2), nil)

	sched.Advance(5 * time.Second)
	if _, err := session.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	sched.Advance(time.Second)

	view := session.View()
	if view.Phase != domain.PhaseAnswerRevealed {
		t.Fatalf("expected answer revealed, got %s", view.Phase)
	}
	if view.SecondsRemaining != 25 {
		t.Fatalf("expected countdown paused at 25, got %d", view.SecondsRemaining)
	}
	if view.CorrectIndex == nil || *view.CorrectIndex != 1 {
		t.Fatalf("expected revealed correct index, got %v", view.CorrectIndex)
	}
	if view.SelectedAnswer == nil || *view.SelectedAnswer != 1 {
		t.Fatalf("expected selected answer 1, got %v", view.SelectedAnswer)
	}

	sched.Advance(500 * time.Millisecond)
	view = session.View()
	if view.Phase != domain.PhaseInProgress || view.QuestionNumber != 2 || view.SecondsRemaining != 30 {
		t.Fatalf("expected second question with full countdown, got %+v", view)
	}
	if view.CorrectIndex != nil {
		t.Fatalf("correct index leaked before reveal")
	}
}

func TestSessionSecondSelectionIsIgnored(t *testing.T) {
	sched := app.NewManualScheduler()
	session := newStartedSession(t, sched, sampleQuestions(2), nil)

	if _, err := session.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	before := session.View()

	outcome, err := session.Select(0)
	if err != nil {
		t.Fatalf("second select: %v", err)
	}
	if outcome.Accepted {
		t.Fatalf("expected second selection to be ignored")
	}
	after := session.View()
	if after.Score != before.Score || after.Streak != before.Streak || *after.SelectedAnswer != 1 {
		t.Fatalf("second selection changed state: before=%+v after=%+v", before, after)
	}
}

func TestSessionStreakResetsOnTimeout(t *testing.T) {
	sched := app.NewManualScheduler()
	session := newStartedSession(t, sched, sampleQuestions(3), nil)

	_, _ = session.Select(1)
	sched.Advance(domain.RevealDelay)
	if got := session.View().Streak; got != 1 {
		t.Fatalf("expected streak 1, got %d", got)
	}

	sched.Advance(30 * time.Second)
	view := session.View()
	if view.Streak != 0 || view.MaxStreak != 1 {
		t.Fatalf("expected streak reset and max 1, got %+v", view)
	}
}

func TestSessionRejectsUnknownOption(t *testing.T) {
	sched := app.NewManualScheduler()
	session := newStartedSession(t, sched, sampleQuestions(1), nil)

	if _, err := session.Select(7); !errors.Is(err, domain.ErrOptionOutOfRange) {
		t.Fatalf("expected out of range error, got %v", err)
	}
	if session.View().SelectedAnswer != nil {
		t.Fatalf("invalid selection was recorded")
	}
}

func TestSessionCloseCancelsTimers(t *testing.T) {
	sched := app.NewManualScheduler()
	completed := false
	session := newStartedSession(t, sched, sampleQuestions(1), func(domain.Summary) { completed = true })

	if _, err := session.Select(1); err != nil {
		t.Fatalf("select: %v", err)
	}
	session.Close()
	if sched.Pending() != 0 {
		t.Fatalf("expected pending reveal to be cancelled, got %d", sched.Pending())
	}

	sched.Advance(time.Minute)
	if completed || session.Phase() != domain.PhaseAnswerRevealed {
		t.Fatalf("closed session advanced: phase=%s completed=%v", session.Phase(), completed)
	}
	if _, err := session.Select(0); !errors.Is(err, domain.ErrSessionClosed) {
		t.Fatalf("expected closed error, got %v", err)
	}
}

func TestSessionNotStarted(t *testing.T) {
	session, err := app.NewSession(sampleQuestions(1), app.SessionConfig{Scheduler: app.NewManualScheduler()})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if session.Phase() != domain.PhaseCollectingInput {
		t.Fatalf("expected collecting input, got %s", session.Phase())
	}
	outcome, err := session.Select(1)
	if err != nil || outcome.Accepted {
		t.Fatalf("expected selection before start to be ignored, got %+v %v", outcome, err)
	}

	if _, err := app.NewSession(nil, app.SessionConfig{}); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

func TestSessionInvariantsUnderRandomPlay(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		sched := app.NewManualScheduler()
		questions := sampleQuestions(1 + rnd.Intn(6))
		session := newStartedSession(t, sched, questions, nil)

		lastScore, lastMax := 0, 0
		for step := 0; step < 400 && session.Phase() != domain.PhaseComplete; step++ {
			before := session.View()
			switch rnd.Intn(3) {
			case 0:
				choice := rnd.Intn(4)
				outcome, err := session.Select(choice)
				if err != nil {
					t.Fatalf("select: %v", err)
				}
				after := session.View()
				if outcome.Accepted && outcome.Correct && after.Score != before.Score+10 {
					t.Fatalf("correct answer must add exactly 10 points: %d -> %d", before.Score, after.Score)
				}
				if outcome.Accepted && !outcome.Correct && (after.Score != before.Score || after.Streak != 0) {
					t.Fatalf("wrong answer changed score or kept streak: %+v", after)
				}
			case 1:
				sched.Advance(time.Second)
			default:
				sched.Advance(time.Duration(rnd.Intn(5000)) * time.Millisecond)
			}

			view := session.View()
			idx := session.CurrentIndex()
			if idx < 0 || idx > len(questions) {
				t.Fatalf("current index out of bounds: %d", idx)
			}
			if (idx == len(questions)) != (view.Phase == domain.PhaseComplete) {
				t.Fatalf("index %d inconsistent with phase %s", idx, view.Phase)
			}
			if view.Score < lastScore {
				t.Fatalf("score decreased: %d -> %d", lastScore, view.Score)
			}
			if view.MaxStreak < lastMax || view.MaxStreak < view.Streak {
				t.Fatalf("max streak invariant broken: %+v (previous max %d)", view, lastMax)
			}
			lastScore, lastMax = view.Score, view.MaxStreak
		}
		session.Close()
	}
}

func newStartedSession(t *testing.T, sched app.Scheduler, questions []domain.Question, onComplete func(domain.Summary)) *app.Session {
	t.Helper()
	session, err := app.NewSession(questions, app.SessionConfig{
		Scheduler:  sched,
		OnComplete: onComplete,
	})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := session.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	return session
}

// sampleQuestions returns n questions whose correct answer is option B.
func sampleQuestions(n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			Text:         "Which option is right?",
			Options:      []string{"wrong", "right", "also wrong", "nope"},
			CorrectIndex: 1,
			Points:       domain.QuestionPoints,
			Difficulty:   domain.DefaultDifficulty,
		}
	}
	return questions
}
