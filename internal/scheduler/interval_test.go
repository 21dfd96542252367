package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMinInterval(t *testing.T) {
	tests := []struct {
		name     string
		maxCalls int
		tickers  int
		want     time.Duration
	}{
		{"two refreshes a day", 100, 50, 43200 * time.Second},
		{"fractional refreshes per day", 102, 50, 42352 * time.Second},
		{"more tickers than calls is capped at one refresh a day", 100, 200, 86400 * time.Second},
		{"default budget with three tickers", 102, 3, 2541 * time.Second},
		{"single ticker", 102, 1, 847 * time.Second},
		{"calls equal tickers", 50, 50, 86400 * time.Second},
		{"empty universe", 102, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MinInterval(tt.maxCalls, tt.tickers))
		})
	}
}

func TestNextUTCMidnight(t *testing.T) {
	t.Run("rolls to the following day", func(t *testing.T) {
		now := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), NextUTCMidnight(now))
	})

	t.Run("uses UTC regardless of the input zone", func(t *testing.T) {
		tokyo := time.FixedZone("JST", 9*60*60)
		now := time.Date(2026, 3, 3, 8, 0, 0, 0, tokyo) // 2026-03-02 23:00 UTC
		assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), NextUTCMidnight(now))
	})

	t.Run("exact midnight moves a full day ahead", func(t *testing.T) {
		now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC), NextUTCMidnight(now))
	})
}
