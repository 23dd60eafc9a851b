// Package storage provides the content-store abstraction for generated
// sticker artwork and its Supabase storage REST implementation, along with
// the object key scheme that keeps every generated sticker unique.
package storage
