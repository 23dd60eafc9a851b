// Package gemini provides an implementation of the generation.Generator
// interface that uses Google's Gemini API to generate sticker images for
// vocabulary words.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external Gemini AI
// service. It translates between the application's domain models and the
// Gemini API without exposing the details of the external service to the
// core application.
//
// Key components:
//
// 1. StickerGenerator:
//   - Implements the generation.Generator interface
//   - Handles communication with the Gemini API
//   - Uploads generated images to the configured object store
//
// 2. Prompt Building:
//   - Builds deterministic prompts from the word and its category
//   - Applies a consistent sticker art style across all generations
//   - Refines physical-trait hints per category and keyword
//
// 3. Response Processing:
//   - Extracts inline image data from API responses
//   - Distinguishes text-only responses from missing or blocked content
//   - Translates API outcomes to application-specific errors
//
// 4. Error Handling:
//   - Implements retry logic with exponential backoff for transient errors
//   - Never retries safety blocks or text-only responses
//   - Guarantees nothing is uploaded when generation fails
//
// The package depends on Google's google.golang.org/genai client library
// for communicating with the Gemini API, and handles authentication,
// request formatting, and response processing according to Google's
// API specifications.
package gemini
