// Package db carries the embedded SQL migrations applied at worker startup.
package db

import "embed"

// Migrations holds the goose migration files.
//
//go:embed migrations/*.sql
var Migrations embed.FS
