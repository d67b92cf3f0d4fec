// Package migrations embeds the SQL schema applied by the migrator.
package migrations

import "embed"

// FS holds the numbered .sql files at its root.
//
//go:embed *.sql
var FS embed.FS
