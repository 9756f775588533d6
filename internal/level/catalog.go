// internal/level/catalog.go
//
// Level catalog loaded from index.json plus one JSON file per level.
// Responsibilities:
//   - Load from a directory (LEVELS_DIR) or fall back to the embedded set.
//   - Lookup by id, ordered listing and next-level cycling.
//   - Deterministic level of the day (HMAC over the date, see daily.go).
//
// The catalog is read once at startup and immutable afterwards.

package level

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"

	"github.com/rs/zerolog/log"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/assets"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
)

// IndexFile is the catalog manifest name.
const IndexFile = "index.json"

// Meta is one entry of index.json.
type Meta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

// Index is the manifest listing every level in play order.
type Index struct {
	Levels []Meta `json:"levels"`
}

// Catalog holds every loaded level.
type Catalog struct {
	metas  []Meta
	levels map[string]Level
}

// Open loads the catalog from dir, or from the embedded levels when dir is
// empty.
func Open(dir string) (*Catalog, error) {
	if dir == "" {
		return Load(assets.LevelsFS())
	}
	return Load(os.DirFS(dir))
}

// Load reads index.json and each listed file from fsys. Entries whose file
// is missing or malformed are skipped with a warning.
func Load(fsys fs.FS) (*Catalog, error) {
	b, err := fs.ReadFile(fsys, IndexFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", IndexFile, err)
	}
	var idx Index
	if err := json.Unmarshal(b, &idx); err != nil {
		return nil, fmt.Errorf("parse %s: %w", IndexFile, err)
	}

	c := &Catalog{levels: make(map[string]Level, len(idx.Levels))}
	for _, m := range idx.Levels {
		if m.ID == "" || m.File == "" {
			continue
		}
		if _, dup := c.levels[m.ID]; dup {
			log.Warn().Str("level", m.ID).Msg("duplicate level id in index, skipping")
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Clean(m.File))
		if err != nil {
			log.Warn().Err(err).Str("level", m.ID).Str("file", m.File).Msg("level file unreadable")
			continue
		}
		var l Level
		if err := json.Unmarshal(raw, &l); err != nil {
			log.Warn().Err(err).Str("level", m.ID).Msg("level file malformed")
			continue
		}
		l.ID = m.ID
		if l.Name == "" {
			l.Name = m.Name
		}
		if l.Differences == nil {
			l.Differences = geometry.Collection{}
		}
		c.metas = append(c.metas, m)
		c.levels[m.ID] = l
	}
	log.Info().Int("levels", len(c.metas)).Msg("level catalog loaded")
	return c, nil
}

// List returns the index entries in play order.
func (c *Catalog) List() []Meta {
	out := make([]Meta, len(c.metas))
	copy(out, c.metas)
	return out
}

// Len is the number of loaded levels.
func (c *Catalog) Len() int { return len(c.metas) }

// Get returns a copy of the level with id.
func (c *Catalog) Get(id string) (Level, error) {
	l, ok := c.levels[id]
	if !ok {
		return Level{}, ErrNotFound
	}
	l.Differences = l.Differences.Clone()
	return l, nil
}

// First returns the first level in play order.
func (c *Catalog) First() (Level, error) {
	if len(c.metas) == 0 {
		return Level{}, ErrNotFound
	}
	return c.Get(c.metas[0].ID)
}

// Next returns the level after id, wrapping around. An unknown id yields the
// first level. With fewer than two levels, ok is false and the caller
// replays the current level.
func (c *Catalog) Next(id string) (Meta, bool) {
	if len(c.metas) < 2 {
		return Meta{}, false
	}
	cur := -1
	for i, m := range c.metas {
		if m.ID == id {
			cur = i
			break
		}
	}
	return c.metas[(cur+1)%len(c.metas)], true
}
