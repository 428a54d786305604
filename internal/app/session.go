package app

import (
	"math"
	"sync"
	"time"

	"bodhiment-quiz/internal/domain"
)

// Settings tunes the timing of a quiz session.
type Settings struct {
	QuestionSeconds int
	RevealDelay     time.Duration
}

// DefaultSettings returns a 30 second countdown and a 1.5 second reveal.
func DefaultSettings() Settings {
	return Settings{
		QuestionSeconds: domain.QuestionSeconds,
		RevealDelay:     domain.RevealDelay,
	}
}

func (s Settings) withDefaults() Settings {
	if s.QuestionSeconds <= 0 {
		s.QuestionSeconds = domain.QuestionSeconds
	}
	if s.RevealDelay <= 0 {
		s.RevealDelay = domain.RevealDelay
	}
	return s
}

// SessionConfig wires a session to its clock and observers.
type SessionConfig struct {
	Scheduler Scheduler
	Settings  Settings
	// OnChange receives a snapshot after every transition and tick. It is
	// called with the session lock held and must not call back into the session.
	OnChange func(domain.View)
	// OnComplete is called once, outside the session lock, when the last
	// question is done.
	OnComplete func(domain.Summary)
}

// AnswerOutcome describes the effect of a Select call.
type AnswerOutcome struct {
	Accepted bool
	Correct  bool
	Awarded  int
}

// Session is one run of a quiz over a fixed question set.
//
// All time-driven transitions go through a single pending timer. Every
// transition cancels that timer before scheduling the next one, and each
// callback carries a sequence number so a callback that lost the race with
// Stop is ignored.
type Session struct {
	questions  []domain.Question
	settings   Settings
	scheduler  Scheduler
	onChange   func(domain.View)
	onComplete func(domain.Summary)

	mu               sync.Mutex
	phase            domain.Phase
	currentIndex     int
	score            int
	streak           int
	maxStreak        int
	correctCount     int
	selected         *int
	secondsRemaining int
	elapsedSeconds   int
	closed           bool
	completed        bool
	reported         bool
	pending          Timer
	pendingSeq       uint64
}

// NewSession builds a session in the collecting-input phase. Call Start to
// activate the first question.
func NewSession(questions []domain.Question, cfg SessionConfig) (*Session, error) {
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	scheduler := cfg.Scheduler
	if scheduler == nil {
		scheduler = RealScheduler()
	}
	settings := cfg.Settings.withDefaults()
	owned := make([]domain.Question, len(questions))
	copy(owned, questions)
	return &Session{
		questions:        owned,
		settings:         settings,
		scheduler:        scheduler,
		onChange:         cfg.OnChange,
		onComplete:       cfg.OnComplete,
		phase:            domain.PhaseCollectingInput,
		secondsRemaining: settings.QuestionSeconds,
	}, nil
}

// Start activates the first question and its countdown. It is a no-op after
// the first call.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrSessionClosed
	}
	if s.phase != domain.PhaseCollectingInput {
		return nil
	}
	s.phase = domain.PhaseInProgress
	s.secondsRemaining = s.settings.QuestionSeconds
	s.elapsedSeconds = 0
	s.scheduleLocked(time.Second, s.tickLocked)
	s.publishLocked()
	return nil
}

// Select records the user's answer for the current question. Only the first
// selection per question counts; later calls report Accepted=false.
func (s *Session) Select(index int) (AnswerOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return AnswerOutcome{}, domain.ErrSessionClosed
	}
	if s.phase != domain.PhaseInProgress || s.selected != nil {
		return AnswerOutcome{}, nil
	}
	question := s.questions[s.currentIndex]
	if index < 0 || index >= len(question.Options) {
		return AnswerOutcome{}, domain.ErrOptionOutOfRange
	}

	selected := index
	s.selected = &selected
	outcome := AnswerOutcome{Accepted: true}
	if index == question.CorrectIndex {
		s.score += question.Points
		s.streak++
		s.correctCount++
		if s.streak > s.maxStreak {
			s.maxStreak = s.streak
		}
		outcome.Correct = true
		outcome.Awarded = question.Points
	} else {
		s.streak = 0
	}

	s.phase = domain.PhaseAnswerRevealed
	s.scheduleLocked(s.settings.RevealDelay, s.advanceLocked)
	s.publishLocked()
	return outcome, nil
}

// Close discards the session and cancels any pending timer. Safe to call twice.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPendingLocked()
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// CurrentIndex returns the zero-based question position; it equals the
// question count once the session is complete.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentIndex
}

// Questions returns a copy of the question set.
func (s *Session) Questions() []domain.Question {
	out := make([]domain.Question, len(s.questions))
	copy(out, s.questions)
	return out
}

// View returns the current snapshot.
func (s *Session) View() domain.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Summary returns the statistics accumulated so far.
func (s *Session) Summary() domain.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked()
}

func (s *Session) tickLocked() {
	if s.phase != domain.PhaseInProgress {
		return
	}
	s.secondsRemaining--
	s.elapsedSeconds++
	if s.secondsRemaining > 0 {
		s.scheduleLocked(time.Second, s.tickLocked)
		return
	}
	// Timed out without a selection.
	s.streak = 0
	s.advanceLocked()
}

func (s *Session) advanceLocked() {
	if s.currentIndex+1 < len(s.questions) {
		s.currentIndex++
		s.selected = nil
		s.secondsRemaining = s.settings.QuestionSeconds
		s.elapsedSeconds = 0
		s.phase = domain.PhaseInProgress
		s.scheduleLocked(time.Second, s.tickLocked)
		return
	}
	s.cancelPendingLocked()
	s.currentIndex = len(s.questions)
	s.selected = nil
	s.phase = domain.PhaseComplete
	s.completed = true
}

func (s *Session) scheduleLocked(d time.Duration, transition func()) {
	s.cancelPendingLocked()
	seq := s.pendingSeq
	s.pending = s.scheduler.AfterFunc(d, func() {
		s.fire(seq, transition)
	})
}

func (s *Session) cancelPendingLocked() {
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.pendingSeq++
}

func (s *Session) fire(seq uint64, transition func()) {
	s.mu.Lock()
	if s.closed || seq != s.pendingSeq {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	transition()
	s.publishLocked()

	var summary domain.Summary
	report := s.completed && !s.reported
	if report {
		s.reported = true
		summary = s.summaryLocked()
	}
	s.mu.Unlock()

	if report && s.onComplete != nil {
		s.onComplete(summary)
	}
}

func (s *Session) publishLocked() {
	if s.onChange != nil {
		s.onChange(s.viewLocked())
	}
}

func (s *Session) viewLocked() domain.View {
	view := domain.View{
		Phase:            s.phase,
		QuestionCount:    len(s.questions),
		SecondsRemaining: s.secondsRemaining,
		ElapsedSeconds:   s.elapsedSeconds,
		Score:            s.score,
		Streak:           s.streak,
		MaxStreak:        s.maxStreak,
	}
	if s.phase == domain.PhaseComplete {
		summary := s.summaryLocked()
		view.Summary = &summary
		view.SecondsRemaining = 0
		return view
	}

	question := s.questions[s.currentIndex]
	view.QuestionNumber = s.currentIndex + 1
	view.Question = question.Text
	view.Options = append([]string(nil), question.Options...)
	if s.selected != nil {
		selected := *s.selected
		view.SelectedAnswer = &selected
	}
	if s.phase == domain.PhaseAnswerRevealed {
		correct := question.CorrectIndex
		view.CorrectIndex = &correct
	}
	return view
}

func (s *Session) summaryLocked() domain.Summary {
	return domain.Summary{
		Score:         s.score,
		MaxStreak:     s.maxStreak,
		Accuracy:      accuracy(s.score, s.questions),
		QuestionCount: len(s.questions),
		CorrectCount:  s.correctCount,
	}
}

// accuracy is the rounded percentage of available points that were scored.
func accuracy(score int, questions []domain.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	if len(questions) == 0 || total == 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(total) * 100))
}
