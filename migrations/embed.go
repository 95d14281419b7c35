// Package migrations embeds the SQL migration files applied through the
// server's -migrate command.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
