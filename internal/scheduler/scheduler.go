package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/trogers1052/quote-refresh-service/internal/fmp"
	"github.com/trogers1052/quote-refresh-service/internal/metrics"
	"github.com/trogers1052/quote-refresh-service/internal/models"
	"go.uber.org/zap"
)

// DefaultMaxCallsPerDay is the provider's free-tier daily call allowance
const DefaultMaxCallsPerDay = 102

// ErrTickInProgress is returned when a tick is requested while one is running
var ErrTickInProgress = errors.New("scheduler tick already in progress")

// State is the phase of the tick state machine
type State string

const (
	StateIdle           State = "IDLE"
	StateCheckingBudget State = "CHECKING_BUDGET"
	StateRefreshing     State = "REFRESHING"
	StateSkipping       State = "SKIPPING"
	StateScanningAlerts State = "SCANNING_ALERTS"
)

// Tick actions
const (
	ActionRefresh         = "refreshed"
	ActionPopulate        = "populated"
	ActionSkip            = "skipped"
	ActionBudgetExhausted = "budget_exhausted"
)

// TickReport summarises what a single tick did
type TickReport struct {
	StartedAt           time.Time     `json:"started_at"`
	Duration            time.Duration `json:"duration"`
	Action              string        `json:"action"`
	Reason              string        `json:"reason,omitempty"`
	TickerCount         int           `json:"ticker_count"`
	Interval            time.Duration `json:"interval"`
	Fetched             int           `json:"fetched"`
	Failed              int           `json:"failed"`
	RateLimited         bool          `json:"rate_limited"`
	AlertsTriggered     int           `json:"alerts_triggered"`
	SellAlertsTriggered int           `json:"sell_alerts_triggered"`
}

// Status is a point-in-time view of the scheduler
type Status struct {
	State      State       `json:"state"`
	LastReport *TickReport `json:"last_report,omitempty"`
}

// Dependencies are the collaborators a Scheduler drives
type Dependencies struct {
	Client        QuoteClient
	Quotes        QuoteStore
	Subscriptions SubscriptionSource
	Users         UserDirectory
	State         RunStateStore
	Notifier      Notifier
	Events        EventPublisher // optional
}

// Options tune the refresh budget
type Options struct {
	MaxCallsPerDay int
	FetchBatchSize int
	Exchanges      []string
	Clock          func() time.Time
}

// Scheduler refreshes cached quotes within the provider's daily budget and
// emails users whose alert or sell prices have been reached.
type Scheduler struct {
	client   QuoteClient
	quotes   QuoteStore
	subs     SubscriptionSource
	users    UserDirectory
	store    RunStateStore
	notifier Notifier
	events   EventPublisher
	logger   *zap.Logger

	maxCallsPerDay int
	batchSize      int
	exchanges      []string
	now            func() time.Time

	running sync.Mutex

	mu         sync.RWMutex
	state      State
	lastReport *TickReport
}

// New creates a Scheduler
func New(deps Dependencies, opts Options, logger *zap.Logger) *Scheduler {
	if opts.MaxCallsPerDay <= 0 {
		opts.MaxCallsPerDay = DefaultMaxCallsPerDay
	}
	if opts.FetchBatchSize <= 0 {
		opts.FetchBatchSize = 1
	}
	if len(opts.Exchanges) == 0 {
		opts.Exchanges = fmp.DefaultExchanges
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if deps.Events == nil {
		deps.Events = noopPublisher{}
	}

	return &Scheduler{
		client:         deps.Client,
		quotes:         deps.Quotes,
		subs:           deps.Subscriptions,
		users:          deps.Users,
		store:          deps.State,
		notifier:       deps.Notifier,
		events:         deps.Events,
		logger:         logger,
		maxCallsPerDay: opts.MaxCallsPerDay,
		batchSize:      opts.FetchBatchSize,
		exchanges:      opts.Exchanges,
		now:            opts.Clock,
		state:          StateIdle,
	}
}

// Status returns the current phase and the report of the last finished tick
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{State: s.state, LastReport: s.lastReport}
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Tick runs one pass of the state machine: decide whether to spend API
// budget, refresh quotes if so, then scan every subscription for alerts.
// The alert scan runs even when the refresh is skipped.
func (s *Scheduler) Tick(ctx context.Context) (*TickReport, error) {
	if !s.running.TryLock() {
		return nil, ErrTickInProgress
	}
	defer s.running.Unlock()
	defer s.setState(StateIdle)

	started := s.now()
	report := &TickReport{StartedAt: started}

	s.setState(StateCheckingBudget)
	state := s.loadState(ctx)
	dirty := s.expireLimit(state, started)

	if state.APILimitHit {
		s.setState(StateSkipping)
		report.Action = ActionBudgetExhausted
		report.Reason = "daily API limit reached"
		s.logger.Info("Skipping refresh, API limit reached",
			zap.Time("reset_at", time.Unix(state.APILimitResetTime, 0).UTC()),
			zap.String("resets", humanizeUnix(state.APILimitResetTime)))
	} else if s.refreshIfDue(ctx, state, report) {
		dirty = true
	}

	if dirty {
		s.saveState(ctx, state)
	}
	metrics.SetAPILimit(state.APILimitHit)

	s.setState(StateScanningAlerts)
	s.scanAlerts(ctx, report)

	report.Duration = s.now().Sub(started)
	metrics.RecordTick(report.Action, report.Duration)

	s.mu.Lock()
	s.lastReport = report
	s.mu.Unlock()

	s.logger.Info("Scheduler tick complete",
		zap.String("action", report.Action),
		zap.String("reason", report.Reason),
		zap.Int("tickers", report.TickerCount),
		zap.Int("fetched", report.Fetched),
		zap.Bool("rate_limited", report.RateLimited),
		zap.Int("alerts", report.AlertsTriggered),
		zap.Int("sell_alerts", report.SellAlertsTriggered),
		zap.Duration("duration", report.Duration))

	return report, nil
}

// refreshIfDue decides whether this tick spends API calls and performs the
// refresh or cold-start population. Population is gated by the same budget
// rule as a refresh. It reports whether state changed.
func (s *Scheduler) refreshIfDue(ctx context.Context, state *models.RunState, report *TickReport) bool {
	tickers, err := s.trackedTickers(ctx)
	if err != nil {
		s.setState(StateSkipping)
		report.Action = ActionSkip
		report.Reason = "ticker universe unavailable"
		s.logger.Error("Failed to load tracked tickers", zap.Error(err))
		return false
	}

	n := len(tickers)
	interval := MinInterval(s.maxCallsPerDay, n)
	report.TickerCount = n
	report.Interval = interval
	metrics.SetBudget(n, interval)

	now := report.StartedAt.Unix()

	if n == 0 {
		s.setState(StateSkipping)
		report.Action = ActionSkip
		report.Reason = "no tracked tickers"
		changed := state.PreviousTickerCount != 0
		state.PreviousTickerCount = 0
		return changed
	}

	due, reason := refreshDue(state, n, now, interval)
	if !due {
		s.setState(StateSkipping)
		report.Action = ActionSkip
		report.Reason = reason
		s.logger.Debug("Refresh not due",
			zap.Int("tickers", n),
			zap.Duration("interval", interval),
			zap.Int64("last_run_time", state.LastRunTime))
		return false
	}

	report.Reason = reason
	s.setState(StateRefreshing)
	if s.cacheEmpty(ctx) {
		// enumeration that stored nothing falls back to the tracked tickers
		if s.populate(ctx, state, report) || report.RateLimited || ctx.Err() != nil {
			s.markRun(state, now, n)
			return true
		}
		s.logger.Warn("Exchange enumeration stored no quotes, fetching tracked tickers",
			zap.Int("tickers", n))
	}
	s.refresh(ctx, tickers, state, report)
	s.markRun(state, now, n)
	return true
}

// refreshDue applies the budget rule: a changed ticker count forces a
// refresh, otherwise the minimum interval must have elapsed.
func refreshDue(state *models.RunState, tickerCount int, now int64, interval time.Duration) (bool, string) {
	if tickerCount != state.PreviousTickerCount {
		return true, "ticker count changed"
	}
	if now-state.LastRunTime >= int64(interval/time.Second) {
		return true, "interval elapsed"
	}
	return false, "interval not elapsed"
}

func (s *Scheduler) markRun(state *models.RunState, now int64, tickerCount int) {
	if now > state.LastRunTime {
		state.LastRunTime = now
	}
	state.PreviousTickerCount = tickerCount
	metrics.LastRunTime.Set(float64(state.LastRunTime))
}

func (s *Scheduler) cacheEmpty(ctx context.Context) bool {
	count, err := s.quotes.CountQuotes(ctx)
	if err != nil {
		s.logger.Warn("Failed to count cached quotes, assuming cache is populated", zap.Error(err))
		return false
	}
	return count == 0
}
