package models

// RunStateID is the key of the singleton refresh scheduler state
const RunStateID = "fmpStockUpdate"

// RunState is the persisted scheduler state. Times are epoch seconds.
type RunState struct {
	ID                  string `json:"id"`
	LastRunTime         int64  `json:"last_run_time"`
	APILimitHit         bool   `json:"api_limit_hit"`
	APILimitResetTime   int64  `json:"api_limit_reset_time"`
	PreviousTickerCount int    `json:"previous_ticker_count"`
}

// NewRunState returns the state used on a fresh start
func NewRunState() *RunState {
	return &RunState{ID: RunStateID}
}
