// Package migrations embeds SQL migrations for the local durable cache.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
