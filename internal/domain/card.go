package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card-specific validation errors
var (
	// ErrCardIDEmpty is returned when a card ID is empty or nil.
	ErrCardIDEmpty = errors.New("card ID cannot be empty")

	// ErrCardWordEmpty is returned when a card's word is empty.
	ErrCardWordEmpty = errors.New("card word cannot be empty")

	// ErrCardLanguageEmpty is returned when a card's language tag is empty.
	ErrCardLanguageEmpty = errors.New("card language cannot be empty")

	// ErrCardCategoryEmpty is returned when a card's category is empty.
	ErrCardCategoryEmpty = errors.New("card category cannot be empty")

	// ErrCardDifficultyInvalid is returned when a card's difficulty tier is
	// outside the supported range.
	ErrCardDifficultyInvalid = errors.New("card difficulty must be between 1 and 3")
)

// managedStickerSegment is the path segment that identifies artwork served
// from the managed sticker bucket, as opposed to placeholder or third-party
// URLs a card may carry.
const managedStickerSegment = "/stickers/"

// Card represents a vocabulary entry collected by a player: the identified
// word, its translation, and the metadata the sticker pipeline needs to
// produce artwork for it.
type Card struct {
	ID          uuid.UUID `json:"id"`
	Word        string    `json:"word"`
	Translation string    `json:"translation"`
	Language    string    `json:"language"`
	Difficulty  int       `json:"difficulty"`
	Category    string    `json:"category"`
	StickerURL  string    `json:"sticker_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewCard creates a new Card with the given word, translation, language,
// difficulty, and category. It generates a new UUID for the card ID and sets
// the creation/update timestamps. Returns an error if validation fails.
func NewCard(word, translation, language string, difficulty int, category string) (*Card, error) {
	card := &Card{
		ID:          uuid.New(),
		Word:        strings.TrimSpace(word),
		Translation: strings.TrimSpace(translation),
		Language:    strings.ToLower(strings.TrimSpace(language)),
		Difficulty:  difficulty,
		Category:    strings.ToLower(strings.TrimSpace(category)),
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := card.Validate(); err != nil {
		return nil, err
	}

	return card, nil
}

// Validate checks if the Card has valid data.
// Returns an error if any field fails validation.
func (c *Card) Validate() error {
	if c.ID == uuid.Nil {
		return ErrCardIDEmpty
	}

	if c.Word == "" {
		return ErrCardWordEmpty
	}

	if c.Language == "" {
		return ErrCardLanguageEmpty
	}

	if c.Category == "" {
		return ErrCardCategoryEmpty
	}

	if c.Difficulty < 1 || c.Difficulty > 3 {
		return ErrCardDifficultyInvalid
	}

	return nil
}

// HasManagedSticker reports whether the card's artwork URL already points
// into the managed sticker store. Cards for which this is true must not be
// re-enqueued; a placeholder or externally sourced URL does not count.
func (c *Card) HasManagedSticker() bool {
	return HasManagedSticker(c.StickerURL)
}

// HasManagedSticker is the canonical predicate for "this URL is one of ours".
// Every call site that needs to decide whether artwork generation is still
// outstanding goes through here.
func HasManagedSticker(url string) bool {
	return strings.Contains(url, managedStickerSegment)
}
