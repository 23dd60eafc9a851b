package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when sticker generation fails for any
	// general reason.
	ErrGenerationFailed = errors.New("failed to generate sticker")

	// ErrInvalidResponse is returned when the model response is malformed:
	// no candidates, no content parts, or undecodable image data.
	ErrInvalidResponse = errors.New("invalid response from image model")

	// ErrTextInsteadOfImage is returned when the model declined to produce an
	// image and answered with text only. This usually means a content-policy
	// refusal and is not worth retrying.
	ErrTextInsteadOfImage = errors.New("model returned text instead of image")

	// ErrContentBlocked is returned when the model blocks the request
	// outright via its safety filters.
	ErrContentBlocked = errors.New("content blocked by image model safety filters")

	// ErrTransientFailure is returned for temporary errors (network failures,
	// 5xx responses) that might resolve on retry.
	ErrTransientFailure = errors.New("transient error during sticker generation")

	// ErrUploadFailed is returned when generated artwork could not be stored.
	ErrUploadFailed = errors.New("failed to upload sticker artwork")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

// IsRetryable reports whether an error from GenerateSticker is worth
// retrying. Content refusals and malformed responses are permanent; only
// transient failures qualify.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientFailure)
}
