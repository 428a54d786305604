package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bodhiment-quiz/internal/domain"
)

// QuestionSource generates raw multiple-choice questions from free text
// (remote backend, LLM, cache).
type QuestionSource interface {
	GenerateMCQs(ctx context.Context, inputText string) ([]domain.RawMCQ, error)
}

// IdentityProvider resolves the user a host acts for.
type IdentityProvider interface {
	UserID(ctx context.Context) (string, bool)
}

// ResultRecorder persists completed games.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result domain.GameResult) error
}

// ResultStore records and lists completed games.
type ResultStore interface {
	ResultRecorder
	ListResults(ctx context.Context, userID string, limit int) ([]domain.GameResult, error)
}

// HostRegistry abstracts where live hosts are kept (in-memory, Redis, etc).
type HostRegistry interface {
	GetOrCreate(userID string) *Host
	// Attach gets or creates the user's host and subscribes to it in one
	// step, so a concurrent DeleteIfIdle cannot close it in between.
	Attach(userID string) (*Host, <-chan domain.View, func())
	// Touch marks the user's host as active.
	Touch(userID string)
	Get(userID string) (*Host, bool)
	DeleteIfIdle(userID string)
}

// HostConfig carries the collaborators of a Host. Only Source is required.
type HostConfig struct {
	Source    QuestionSource
	Identity  IdentityProvider
	Results   ResultRecorder
	Scheduler Scheduler
	Settings  Settings
	Logger    *slog.Logger
	Now       func() time.Time
}

// Host owns at most one live Session: it fetches questions, starts sessions,
// replaces them on New Game and fans out view snapshots to subscribers.
type Host struct {
	source    QuestionSource
	identity  IdentityProvider
	results   ResultRecorder
	scheduler Scheduler
	settings  Settings
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.Mutex
	session   *Session
	epoch     uint64 // bumped by Exit and Close; generations started before are dropped
	lastInput string
	loading   bool
	lastErr   string

	subMu       sync.Mutex
	subscribers map[chan domain.View]struct{}
}

func NewHost(cfg HostConfig) *Host {
	h := &Host{
		source:      cfg.Source,
		identity:    cfg.Identity,
		results:     cfg.Results,
		scheduler:   cfg.Scheduler,
		settings:    cfg.Settings.withDefaults(),
		logger:      cfg.Logger,
		now:         cfg.Now,
		subscribers: make(map[chan domain.View]struct{}),
	}
	if h.scheduler == nil {
		h.scheduler = RealScheduler()
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// StartSession generates questions for inputText and, on success, replaces the
// current session with a fresh one whose first question is already running.
// On failure the current session (if any) is left untouched. If Exit or Close
// runs while questions are generating, the result is dropped and
// ErrNoSession is returned.
func (h *Host) StartSession(ctx context.Context, inputText string) (*Session, error) {
	if strings.TrimSpace(inputText) == "" {
		h.fail(domain.ErrEmptyInput)
		return nil, domain.ErrEmptyInput
	}

	h.mu.Lock()
	epoch := h.epoch
	h.loading = true
	h.lastErr = ""
	h.mu.Unlock()
	h.broadcast(h.View())

	raw, err := h.source.GenerateMCQs(ctx, inputText)
	if h.stale(epoch) {
		h.logger.Debug("dropping questions generated before exit")
		return nil, domain.ErrNoSession
	}
	var questions []domain.Question
	if err == nil {
		questions = FormatQuestions(raw)
		if len(questions) == 0 {
			err = domain.ErrNoQuestions
		}
	}
	if err != nil {
		h.logger.Warn("question generation failed", "error", err)
		h.fail(err)
		return nil, err
	}

	var session *Session
	session, err = NewSession(questions, SessionConfig{
		Scheduler: h.scheduler,
		Settings:  h.settings,
		OnChange: func(v domain.View) {
			h.publish(session, v)
		},
		OnComplete: func(summary domain.Summary) {
			h.recordCompletion(summary)
		},
	})
	if err != nil {
		h.fail(err)
		return nil, err
	}

	h.mu.Lock()
	if h.epoch != epoch {
		h.mu.Unlock()
		session.Close()
		return nil, domain.ErrNoSession
	}
	previous := h.session
	h.session = session
	h.lastInput = inputText
	h.loading = false
	h.lastErr = ""
	h.mu.Unlock()

	if previous != nil {
		previous.Close()
	}
	if err := session.Start(); err != nil {
		return nil, err
	}
	h.logger.Info("quiz session started", "questions", len(questions))
	return session, nil
}

// Restart starts a new session from the last submitted input.
func (h *Host) Restart(ctx context.Context) (*Session, error) {
	h.mu.Lock()
	input := h.lastInput
	h.mu.Unlock()
	if input == "" {
		return nil, domain.ErrNoSession
	}
	return h.StartSession(ctx, input)
}

// Exit discards the current session and returns to input collection.
func (h *Host) Exit() {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.epoch++
	h.loading = false
	h.lastErr = ""
	h.mu.Unlock()

	if session != nil {
		session.Close()
	}
	h.broadcast(h.View())
}

// Close discards the current session and forgets the last input.
func (h *Host) Close() {
	h.mu.Lock()
	session := h.session
	h.session = nil
	h.epoch++
	h.loading = false
	h.lastInput = ""
	h.mu.Unlock()

	if session != nil {
		session.Close()
	}
}

// Select answers the current question of the live session.
func (h *Host) Select(index int) (AnswerOutcome, error) {
	session := h.Session()
	if session == nil {
		return AnswerOutcome{}, domain.ErrNoSession
	}
	return session.Select(index)
}

// Session returns the live session or nil.
func (h *Host) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

// View returns the snapshot a presentation layer should render right now.
func (h *Host) View() domain.View {
	h.mu.Lock()
	session := h.session
	loading := h.loading
	lastErr := h.lastErr
	h.mu.Unlock()

	view := domain.View{Phase: domain.PhaseCollectingInput}
	if session != nil {
		view = session.View()
	}
	view.Loading = loading
	view.Error = lastErr
	return view
}

// Subscribe returns a channel that receives a view on every change.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Host) Subscribe() (<-chan domain.View, func()) {
	ch := make(chan domain.View, 8)
	initial := h.View()

	// The initial view is queued before registration so no broadcast can
	// overtake it.
	h.subMu.Lock()
	ch <- initial
	h.subscribers[ch] = struct{}{}
	h.subMu.Unlock()

	cancel := func() {
		h.subMu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.subMu.Unlock()
	}
	return ch, cancel
}

// IsIdle reports whether nobody is watching this host.
func (h *Host) IsIdle() bool {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	return len(h.subscribers) == 0
}

func (h *Host) stale(epoch uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.epoch != epoch
}

func (h *Host) fail(err error) {
	h.mu.Lock()
	h.loading = false
	h.lastErr = userMessage(err)
	h.mu.Unlock()
	h.broadcast(h.View())
}

// publish forwards a session snapshot if the session is still the live one.
func (h *Host) publish(session *Session, v domain.View) {
	h.mu.Lock()
	if h.session != session {
		h.mu.Unlock()
		return
	}
	v.Loading = h.loading
	v.Error = h.lastErr
	h.mu.Unlock()
	h.broadcast(v)
}

func (h *Host) broadcast(v domain.View) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- v:
		default:
			// Drop the oldest snapshot so a slow reader never blocks a timer.
			select {
			case <-ch:
			default:
			}
			ch <- v
		}
	}
}

func (h *Host) recordCompletion(summary domain.Summary) {
	h.logger.Info("quiz session complete",
		"score", summary.Score,
		"max_streak", summary.MaxStreak,
		"accuracy", summary.Accuracy,
	)
	if h.results == nil || h.identity == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	userID, ok := h.identity.UserID(ctx)
	if !ok || userID == "" {
		return
	}
	result := domain.GameResult{
		UserID:        userID,
		Score:         summary.Score,
		MaxStreak:     summary.MaxStreak,
		Accuracy:      summary.Accuracy,
		QuestionCount: summary.QuestionCount,
		CorrectCount:  summary.CorrectCount,
		CompletedAt:   h.now(),
	}
	if err := h.results.RecordResult(ctx, result); err != nil {
		h.logger.Error("record game result", "user_id", userID, "error", err)
	}
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return "Please enter some text to generate questions."
	case errors.Is(err, domain.ErrNoQuestions):
		return "No questions could be generated from this text."
	default:
		return err.Error()
	}
}
