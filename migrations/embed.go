// Package migrations embeds the SQL schema applied to the Postgres store.
package migrations

import "embed"

// FS holds the numbered up/down migration files.
//
//go:embed *.sql
var FS embed.FS
