package scoring

// Rules are the point values for one level.
type Rules struct {
	PointsPerHit   int `json:"pointsPerHit"`
	PenaltyPerMiss int `json:"penaltyPerMiss"`
	BonusPerSecond int `json:"bonusPerSecond"`
}

// Defaults apply to any field a level leaves unset.
var Defaults = Rules{
	PointsPerHit:   200,
	PenaltyPerMiss: 50,
	BonusPerSecond: 10,
}

// Overrides holds level-specific values; nil fields fall back to Defaults.
type Overrides struct {
	PointsPerHit   *int `json:"pointsPerHit,omitempty"`
	PenaltyPerMiss *int `json:"penaltyPerMiss,omitempty"`
	BonusPerSecond *int `json:"bonusPerSecond,omitempty"`
}

// Merge resolves o over base field by field.
func Merge(base Rules, o Overrides) Rules {
	out := base
	if o.PointsPerHit != nil {
		out.PointsPerHit = *o.PointsPerHit
	}
	if o.PenaltyPerMiss != nil {
		out.PenaltyPerMiss = *o.PenaltyPerMiss
	}
	if o.BonusPerSecond != nil {
		out.BonusPerSecond = *o.BonusPerSecond
	}
	return out
}
