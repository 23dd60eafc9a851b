package gemini

import (
	"fmt"
	"strings"
)

// styleClause lists the required style tags for every sticker. The app's
// collection view mixes stickers from many generations, so the visual style
// has to stay uniform across words and categories.
const styleClause = "kawaii style, chibi proportions, flat colors, die-cut sticker with a thick white border"

// negativeClause excludes everything that breaks the sticker look.
const negativeClause = "No photorealism, no text, no letters, no watermarks, no busy background"

// genericTrait is the fallback hint when neither the word nor the category
// matches the trait tables.
const genericTrait = "simple rounded shape, big friendly eyes, cheerful expression"

// wordTraits refines the physical hint by keyword within a category.
// Matching is substring-based on the lowercased word so that compounds and
// inflections ("gatito", "blackbird") still hit.
var wordTraits = map[string][]struct {
	keyword string
	trait   string
}{
	"animal": {
		{"cat", "round body, pointed ears, curled tail"},
		{"dog", "floppy ears, wagging tail, happy tongue"},
		{"bird", "plump body, tiny wings, fluffy chest"},
		{"fish", "chubby oval body, big round eye, little fins"},
		{"bear", "round belly, small ears, stubby paws"},
	},
	"food": {
		{"fruit", "glossy round body, tiny green leaf on top"},
		{"bread", "golden crust, soft puffy shape"},
		{"cake", "fluffy layers, a swirl of frosting"},
		{"drink", "tall cup, bendy straw, bubbles"},
	},
	"nature": {
		{"tree", "rounded leafy crown, sturdy little trunk"},
		{"flower", "big round petals, smiling center"},
		{"cloud", "puffy cotton shape, rosy cheeks"},
		{"mountain", "snow-capped triangle, gentle slopes"},
	},
	"object": {
		{"book", "plump cover, tiny bookmark ribbon"},
		{"chair", "cushioned seat, stubby legs"},
		{"car", "rounded body, oversized wheels"},
		{"phone", "rounded rectangle, glowing little screen"},
	},
}

// categoryTraits is the per-category default used when no keyword matches.
var categoryTraits = map[string]string{
	"animal": "soft rounded body, big expressive eyes, tiny paws",
	"food":   "glossy surface, rosy cheeks, delighted face",
	"nature": "soft organic shape, fresh green accents",
	"object": "compact rounded form, subtle highlights",
	"place":  "miniature diorama look, warm inviting glow",
	"person": "oversized head, small body, warm smile",
}

// BuildStickerPrompt produces the generation prompt for a vocabulary word.
// It is a pure function of (word, category): no randomness, no timestamps,
// so the same inputs always yield byte-identical prompt text.
func BuildStickerPrompt(word, category string) string {
	return fmt.Sprintf(
		"A cute sticker illustration of a %s. %s. Featuring %s. Centered on a plain white background. %s.",
		strings.TrimSpace(word),
		styleClause,
		traitHint(word, category),
		negativeClause,
	)
}

// traitHint selects the physical-trait hint for a word within its category.
func traitHint(word, category string) string {
	w := strings.ToLower(strings.TrimSpace(word))
	c := strings.ToLower(strings.TrimSpace(category))

	for _, entry := range wordTraits[c] {
		if strings.Contains(w, entry.keyword) {
			return entry.trait
		}
	}

	if trait, ok := categoryTraits[c]; ok {
		return trait
	}

	return genericTrait
}
