// Package api contains the HTTP handlers, request/response models, and
// delivery-level validation for the sticker service. Handlers translate
// between HTTP and the service/queue layers and never contain business
// logic themselves.
package api
