package stalier

import (
	"math"
	"time"

	"github.com/always-cache/stalier/cache"
)

// Freshness is the classification of a cache entry at a point in time.
type Freshness int

const (
	// The entry is absent or older than max-age plus the stale window.
	Expired Freshness = iota
	// The entry is past max-age but within the stale window.
	Stale
	// The entry is younger than max-age.
	Fresh
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "expired"
	}
}

// Classify determines the freshness of an entry given max-age and stale window (both in seconds).
// A nil entry is always expired.
// Boundaries are exclusive: an entry exactly max-age old is not fresh.
func Classify[T any](entry *cache.Entry[T], maxAge, staleWhileRevalidate int, now time.Time) Freshness {
	if entry == nil {
		return Expired
	}
	age := now.UnixMilli() - entry.LastUpdated
	if age < millis(int64(maxAge)) {
		return Fresh
	}
	if age < millis(saturatingAdd(int64(maxAge), int64(staleWhileRevalidate))) {
		return Stale
	}
	return Expired
}

// millis converts non-negative seconds to milliseconds, saturating at math.MaxInt64.
func millis(seconds int64) int64 {
	if seconds > math.MaxInt64/1000 {
		return math.MaxInt64
	}
	return seconds * 1000
}

func saturatingAdd(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
