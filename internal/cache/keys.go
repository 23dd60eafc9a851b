package cache

import (
	"github.com/google/uuid"
)

// JobStatusKey builds the cache key holding a sticker job's serialized state.
func JobStatusKey(jobID uuid.UUID) string {
	return "sticker:job:" + jobID.String()
}
