package domain

import (
	"fmt"
	"strings"
)

// PromptText and AnswerText are distinct nominal types so that a card's
// front and back can never be swapped accidentally at a call site.
type PromptText string

// AnswerText is the back side of a card.
type AnswerText string

// ErrEmptyText reports blank card content.
var ErrEmptyText = fmt.Errorf("card text cannot be empty")

// NewPromptText validates and returns the front side of a card.
func NewPromptText(s string) (PromptText, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("prompt: %w", ErrEmptyText)
	}
	return PromptText(s), nil
}

// NewAnswerText validates and returns the back side of a card.
func NewAnswerText(s string) (AnswerText, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("answer: %w", ErrEmptyText)
	}
	return AnswerText(s), nil
}
