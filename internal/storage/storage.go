package storage

import "context"

// ObjectStore defines the interface for the content store that holds
// generated sticker artwork. Objects are immutable: a key is written once
// and never overwritten or deleted by this application.
type ObjectStore interface {
	// Upload stores the given bytes under key in the sticker bucket with the
	// provided content type. Implementations set a far-future cache-control
	// directive; keys embed a timestamp so content at a key never changes.
	Upload(ctx context.Context, key string, data []byte, contentType string) error

	// PublicURL returns the durable public URL for a previously uploaded key.
	// The resolution is deterministic and does not perform I/O.
	PublicURL(key string) string
}
