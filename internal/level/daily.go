package level

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailyIndex returns a deterministic index for a date using
// HMAC(salt, YYYY-MM-DD) % n.
func DailyIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}

// Daily returns the level of the day.
func (c *Catalog) Daily(now time.Time, salt string) (Level, error) {
	if len(c.metas) == 0 {
		return Level{}, ErrNotFound
	}
	return c.Get(c.metas[DailyIndex(now, salt, len(c.metas))].ID)
}
