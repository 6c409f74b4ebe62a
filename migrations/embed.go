// Package migrations embeds the SQL migration files so that the compiled
// binary carries its own schema management without requiring files on disk.
package migrations

import "embed"

// FS holds the postgresql/ and mysql/ migration directories.
//
//go:embed postgresql/*.sql mysql/*.sql
var FS embed.FS
