// Package migrations embeds the stats schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
