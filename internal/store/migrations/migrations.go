// ABOUTME: Embedded goose migrations for the chat database schema
// ABOUTME: Files use numeric prefixes and the -- +goose Up/Down annotations

package migrations

import "embed"

// FS holds every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
