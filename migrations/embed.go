// Package migrations holds the PostgreSQL schema migrations, embedded so
// the server can apply them without the files on disk.
package migrations

import "embed"

// FS contains every *.sql migration in this directory
//
//go:embed *.sql
var FS embed.FS
