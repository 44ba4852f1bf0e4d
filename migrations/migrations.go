// Package migrations embeds the SQL schema so the binary can migrate from any directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
