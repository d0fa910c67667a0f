package domain

// CardID uniquely identifies a card.
type CardID int64

// DeckID uniquely identifies a deck.
type DeckID int64

// LogID identifies a persisted review log row.
type LogID int64

// SummaryID identifies a persisted session summary row.
type SummaryID int64
