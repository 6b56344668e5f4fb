// Package migrations embeds SQL migration files.
package migrations

import "embed"

// CoreFS contiene las migraciones del esquema principal.
//
//go:embed core/*.sql
var CoreFS embed.FS

// CoreDir is the directory within CoreFS where migrations live.
const CoreDir = "core"
