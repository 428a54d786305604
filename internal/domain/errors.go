package domain

import "errors"

var (
	// ErrEmptyInput is returned when a quiz is requested for blank text.
	ErrEmptyInput = errors.New("input text is empty")
	// ErrGenerationFailed covers network errors, bad statuses and backend error bodies.
	ErrGenerationFailed = errors.New("question generation failed")
	// ErrNoQuestions indicates generation succeeded but produced nothing usable.
	ErrNoQuestions = errors.New("no questions generated")
	// ErrNoSession is returned when an action needs a live session and there is none.
	ErrNoSession = errors.New("no active quiz session")
	// ErrSessionClosed is returned by a session that was discarded.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrOptionOutOfRange indicates a selected option index does not exist.
	ErrOptionOutOfRange = errors.New("option index out of range")
	// ErrUnknownIdentity is returned when a request carries no user id.
	ErrUnknownIdentity = errors.New("user identity not found")
)
