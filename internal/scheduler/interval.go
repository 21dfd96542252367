package scheduler

import (
	"math"
	"time"
)

const secondsPerDay = 86400

// MinInterval is the shortest gap between refreshes that keeps a full
// refresh of tickerCount symbols within maxCallsPerDay provider calls:
// floor(86400 / max(1, maxCallsPerDay/tickerCount)) seconds.
// An empty universe has no interval.
func MinInterval(maxCallsPerDay, tickerCount int) time.Duration {
	if tickerCount <= 0 {
		return 0
	}

	refreshesPerDay := math.Max(1, float64(maxCallsPerDay)/float64(tickerCount))
	return time.Duration(math.Floor(secondsPerDay/refreshesPerDay)) * time.Second
}

// NextUTCMidnight returns the first 00:00:00 UTC strictly after t
func NextUTCMidnight(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour).Add(24 * time.Hour)
}
