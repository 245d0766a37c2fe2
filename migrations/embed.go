// Package migrations embeds the DevBind SQL migrations into the binary.
//
// Importing the package (usually blank, from main) registers the files with
// the database package.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-devbind/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
