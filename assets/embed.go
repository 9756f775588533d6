// Package assets embeds the default level set and the SQL migrations so the
// server runs without any files on disk.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed levels/*.json
var levels embed.FS

//go:embed sql/*.sql
var migrations embed.FS

// LevelsFS is rooted at the levels directory (index.json at the top).
func LevelsFS() fs.FS {
	sub, err := fs.Sub(levels, "levels")
	if err != nil {
		panic(err)
	}
	return sub
}

// MigrationsFS is rooted at the sql directory.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrations, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}
