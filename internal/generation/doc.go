// Package generation provides interfaces and error taxonomy for interacting
// with external generative-image services. It abstracts the details of the
// image API integration (Gemini), allowing the application to generate
// sticker artwork for vocabulary cards without coupling to specific external
// services.
package generation
