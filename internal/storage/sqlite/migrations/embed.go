package migrations

import "embed"

// FS contains the room store migrations.
//
//go:embed *.sql
var FS embed.FS
