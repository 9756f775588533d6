// internal/level/level.go
//
// Level descriptors and the import/export payload.
// Defines:
//   - Level: images, difference collection and optional per-level rules.
//   - ParseImport / ApplyImport: validate an uploaded payload and merge it
//     over the current level, field by field.
//   - Export: level fields plus the current difference collection.
//
// A payload without a "differences" array is rejected before anything
// else is looked at, so a bad import never leaves half-applied state.
// Imported collections must have unique ids; x/y are clamped to 0-100 and
// rounded to two decimals.

package level

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/geometry"
	"github.com/ZaoGabo/encuentra-las-diferencias-web/internal/scoring"
)

// DefaultTimeLimit is the round length in seconds when a level sets none.
const DefaultTimeLimit = 120

var (
	// ErrNoDifferences is returned for payloads lacking a differences array.
	ErrNoDifferences = errors.New("level: payload must include a \"differences\" array")
	// ErrNotFound is returned for unknown level ids.
	ErrNotFound = errors.New("level: not found")
	// ErrDuplicateID is returned for payloads that reuse a difference id.
	ErrDuplicateID = errors.New("level: duplicate difference id")
)

// Level is one playable pair of images.
type Level struct {
	ID             string              `json:"id"`
	Name           string              `json:"name,omitempty"`
	Description    string              `json:"description,omitempty"`
	OriginalImage  string              `json:"originalImage,omitempty"`
	ModifiedImage  string              `json:"modifiedImage,omitempty"`
	Differences    geometry.Collection `json:"differences"`
	PointsPerHit   *int                `json:"pointsPerHit,omitempty"`
	PenaltyPerMiss *int                `json:"penaltyPerMiss,omitempty"`
	BonusPerSecond *int                `json:"bonusPerSecond,omitempty"`
	TimeLimit      *int                `json:"timeLimit,omitempty"`
}

// Rules returns the level's scoring overrides.
func (l Level) Rules() scoring.Overrides {
	return scoring.Overrides{
		PointsPerHit:   l.PointsPerHit,
		PenaltyPerMiss: l.PenaltyPerMiss,
		BonusPerSecond: l.BonusPerSecond,
	}
}

// TimeLimitOr returns the level's time limit, or def when unset.
func (l Level) TimeLimitOr(def int) int {
	if l.TimeLimit != nil {
		return *l.TimeLimit
	}
	return def
}

// ParseImport decodes an uploaded level payload.
func ParseImport(data []byte) (Level, error) {
	fields, err := decodeObject(data)
	if err != nil {
		return Level{}, err
	}
	raw, ok := fields["differences"]
	if !ok || !isArray(raw) {
		return Level{}, ErrNoDifferences
	}
	var l Level
	if err := json.Unmarshal(data, &l); err != nil {
		return Level{}, fmt.Errorf("level: decode payload: %w", err)
	}
	if l.Differences, err = normalize(l.Differences); err != nil {
		return Level{}, err
	}
	return l, nil
}

// ApplyImport validates payload and merges its top-level fields over base.
// Fields absent from the payload keep their base values.
func ApplyImport(base Level, payload []byte) (Level, error) {
	if _, err := ParseImport(payload); err != nil {
		return Level{}, err
	}
	baseJSON, err := json.Marshal(base)
	if err != nil {
		return Level{}, fmt.Errorf("level: encode base: %w", err)
	}
	merged, err := decodeObject(baseJSON)
	if err != nil {
		return Level{}, err
	}
	over, err := decodeObject(payload)
	if err != nil {
		return Level{}, err
	}
	for k, v := range over {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return Level{}, fmt.Errorf("level: encode merged: %w", err)
	}
	var l Level
	if err := json.Unmarshal(out, &l); err != nil {
		return Level{}, fmt.Errorf("level: decode merged: %w", err)
	}
	if l.Differences, err = normalize(l.Differences); err != nil {
		return Level{}, err
	}
	return l, nil
}

// normalize rejects duplicate ids and brings x/y into percent space.
func normalize(c geometry.Collection) (geometry.Collection, error) {
	if c == nil {
		return geometry.Collection{}, nil
	}
	seen := make(map[int]struct{}, len(c))
	for i := range c {
		d := &c[i]
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, d.ID)
		}
		seen[d.ID] = struct{}{}
		d.X = geometry.Round2(geometry.ClampPercent(d.X, 0, 100))
		d.Y = geometry.Round2(geometry.ClampPercent(d.Y, 0, 100))
	}
	return c, nil
}

// Export serialises l with diffs as its difference collection.
func Export(l Level, diffs geometry.Collection) ([]byte, error) {
	l.Differences = diffs
	if l.Differences == nil {
		l.Differences = geometry.Collection{}
	}
	return json.MarshalIndent(l, "", "  ")
}

func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("level: payload is not a JSON object: %w", err)
	}
	if m == nil {
		return nil, errors.New("level: payload is not a JSON object")
	}
	return m, nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}
