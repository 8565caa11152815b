// AngelaMos | 2026
// embed.go

// Package server carries the assets compiled into the binary.
package server

import "embed"

// Migrations holds the goose SQL migrations applied at startup when
// database.migrate is set.
//
//go:embed migrations/*.sql
var Migrations embed.FS
