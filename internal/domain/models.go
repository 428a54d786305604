package domain

import (
	"fmt"
	"time"
)

const (
	// QuestionPoints is the reward for a correct answer.
	QuestionPoints = 10
	// QuestionSeconds is the countdown budget for every question.
	QuestionSeconds = 30
	// RevealDelay is how long the answer stays revealed before the quiz advances.
	RevealDelay = 1500 * time.Millisecond
	// DefaultDifficulty is attached to every formatted question; nothing reads it.
	DefaultDifficulty = "medium"
)

// RawMCQ is a multiple-choice question as returned by the generation backend.
type RawMCQ struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"` // "A".."D"
}

// MCQResponse is the body of POST /generate-mcqs.
type MCQResponse struct {
	MCQs  []RawMCQ `json:"mcqs"`
	Error string   `json:"error,omitempty"`
}

// Question is the normalized form used by a quiz session.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Points       int      `json:"points"`
	Difficulty   string   `json:"difficulty"`
}

// Phase is the state of a quiz session.
type Phase int

const (
	PhaseCollectingInput Phase = iota
	PhaseInProgress
	PhaseAnswerRevealed
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseCollectingInput:
		return "collecting_input"
	case PhaseInProgress:
		return "in_progress"
	case PhaseAnswerRevealed:
		return "answer_revealed"
	case PhaseComplete:
		return "complete"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// MarshalText encodes the phase as its string name.
func (p Phase) MarshalText() ([]byte, error) {
	switch p {
	case PhaseCollectingInput, PhaseInProgress, PhaseAnswerRevealed, PhaseComplete:
		return []byte(p.String()), nil
	default:
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
}

// UnmarshalText decodes a phase name produced by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := ParsePhase(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase maps a phase name back to its value.
func ParsePhase(raw string) (Phase, error) {
	switch raw {
	case "collecting_input":
		return PhaseCollectingInput, nil
	case "in_progress":
		return PhaseInProgress, nil
	case "answer_revealed":
		return PhaseAnswerRevealed, nil
	case "complete":
		return PhaseComplete, nil
	default:
		return PhaseCollectingInput, fmt.Errorf("unknown phase %q", raw)
	}
}

// Summary holds the final statistics of a completed session.
type Summary struct {
	Score         int `json:"score"`
	MaxStreak     int `json:"maxStreak"`
	Accuracy      int `json:"accuracy"`
	QuestionCount int `json:"questionCount"`
	CorrectCount  int `json:"correctCount"`
}

// View is the read-only snapshot a presentation layer renders.
type View struct {
	Phase            Phase    `json:"phase"`
	QuestionNumber   int      `json:"questionNumber,omitempty"` // 1-based
	QuestionCount    int      `json:"questionCount"`
	Question         string   `json:"question,omitempty"`
	Options          []string `json:"options,omitempty"`
	SelectedAnswer   *int     `json:"selectedAnswer,omitempty"`
	CorrectIndex     *int     `json:"correctIndex,omitempty"` // set once the answer is revealed
	SecondsRemaining int      `json:"secondsRemaining"`
	ElapsedSeconds   int      `json:"elapsedSeconds"`
	Score            int      `json:"score"`
	Streak           int      `json:"streak"`
	MaxStreak        int      `json:"maxStreak"`
	Loading          bool     `json:"loading,omitempty"`
	Error            string   `json:"error,omitempty"`
	Summary          *Summary `json:"summary,omitempty"`
}

// GameResult is a completed session recorded for an identified user.
type GameResult struct {
	UserID        string    `json:"userId"`
	Score         int       `json:"score"`
	MaxStreak     int       `json:"maxStreak"`
	Accuracy      int       `json:"accuracy"`
	QuestionCount int       `json:"questionCount"`
	CorrectCount  int       `json:"correctCount"`
	CompletedAt   time.Time `json:"completedAt"`
}
