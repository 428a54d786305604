package app

import (
	"strings"

	"bodhiment-quiz/internal/domain"
)

var correctLabels = map[string]int{"A": 0, "B": 1, "C": 2, "D": 3}

// CorrectIndex maps a backend correctness label to an option index.
// Anything other than A-D (after trimming) maps to 0.
func CorrectIndex(label string) int {
	if idx, ok := correctLabels[strings.TrimSpace(label)]; ok {
		return idx
	}
	return 0
}

// FormatQuestions normalizes backend MCQs into session questions, keeping input order.
// Records without options are skipped; a label pointing past the last option maps to 0.
func FormatQuestions(raw []domain.RawMCQ) []domain.Question {
	questions := make([]domain.Question, 0, len(raw))
	for _, mcq := range raw {
		if len(mcq.Options) == 0 {
			continue
		}
		options := make([]string, len(mcq.Options))
		for i, opt := range mcq.Options {
			options[i] = strings.TrimSpace(opt)
		}
		correct := CorrectIndex(mcq.CorrectAnswer)
		if correct >= len(options) {
			correct = 0
		}
		questions = append(questions, domain.Question{
			Text:         strings.TrimSpace(mcq.Question),
			Options:      options,
			CorrectIndex: correct,
			Points:       domain.QuestionPoints,
			Difficulty:   domain.DefaultDifficulty,
		})
	}
	return questions
}
