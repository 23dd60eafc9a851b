package generation

import "context"

// Sticker is the result of a successful artwork generation: the durable
// public URL of the uploaded image and the object key it lives under.
type Sticker struct {
	URL string
	Key string
}

// Generator defines the interface for producing sticker artwork for a
// vocabulary word. This interface is the boundary between the job queue and
// the external image-generation and storage services; implementations handle
// prompt construction, the remote API call, and the upload.
type Generator interface {
	// GenerateSticker creates artwork for the given word and uploads it to
	// the sticker store. The category selects the visual trait hints used in
	// the prompt; the language tag becomes part of the object key.
	//
	// Two calls for the same word produce two distinct artwork objects: keys
	// embed a timestamp and are never reused. Deduplication is the caller's
	// responsibility.
	//
	// Returns an error classified by the sentinels in errors.go so callers
	// can distinguish content refusal from transient failure.
	GenerateSticker(ctx context.Context, word, language, category string) (*Sticker, error)
}
