package throttle

import (
	"embed"

	"github.com/klwxsrx/go-throttle/pkg/sql"
)

var Migrations = sql.FSMigrations(migrationFiles)

//go:embed postgres/*.sql sqlite/*.sql
var migrationFiles embed.FS
