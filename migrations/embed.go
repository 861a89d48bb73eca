// Package migrations embeds the additive SQL migrations for the registered_bots schema.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
