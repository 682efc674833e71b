// Package migrations embeds the SQL schema of the command log.
//
// Importing it (for side effects) registers the files with the database
// package, so the daemon needs no SQL files on disk.
package migrations

import (
	"embed"

	"github.com/nerrad567/domotic-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
