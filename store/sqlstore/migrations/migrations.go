// Package migrations embeds the sqlstore schema for goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
