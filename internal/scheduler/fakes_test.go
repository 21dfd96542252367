package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/quote-refresh-service/internal/fmp"
	"github.com/trogers1052/quote-refresh-service/internal/models"
)

// mockClient serves quotes from an in-memory price table
type mockClient struct {
	mu             sync.Mutex
	prices         map[string]decimal.Decimal
	rateLimitOn    map[string]bool
	failOn         map[string]bool
	exchangeQuotes map[string][]models.QuoteSnapshot
	block          chan struct{}
	started        chan struct{}

	quoteCalls    [][]string
	exchangeCalls []string
}

func newMockClient() *mockClient {
	return &mockClient{
		prices:         make(map[string]decimal.Decimal),
		rateLimitOn:    make(map[string]bool),
		failOn:         make(map[string]bool),
		exchangeQuotes: make(map[string][]models.QuoteSnapshot),
	}
}

func (m *mockClient) FetchQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error) {
	if m.started != nil {
		close(m.started)
		m.started = nil
	}
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.quoteCalls = append(m.quoteCalls, append([]string(nil), symbols...))

	var quotes []models.QuoteSnapshot
	for _, s := range symbols {
		if m.rateLimitOn[s] {
			return nil, &fmp.RateLimitError{Endpoint: "/v3/quote/" + s, StatusCode: 429, Message: "Limit Reach"}
		}
		if m.failOn[s] {
			return nil, &fmp.TransientError{Endpoint: "/v3/quote/" + s, StatusCode: 500, Err: errors.New("boom")}
		}
		if p, ok := m.prices[s]; ok {
			quotes = append(quotes, models.QuoteSnapshot{Symbol: s, Price: p})
		}
	}
	return quotes, nil
}

func (m *mockClient) FetchExchangeSymbols(ctx context.Context, exchanges ...string) ([]models.QuoteSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var quotes []models.QuoteSnapshot
	for _, e := range exchanges {
		m.exchangeCalls = append(m.exchangeCalls, e)
		if m.rateLimitOn[e] {
			return quotes, &fmp.RateLimitError{Endpoint: "/v3/symbol/" + e, StatusCode: 200, Message: "Limit Reach"}
		}
		if m.failOn[e] {
			return quotes, &fmp.TransientError{Endpoint: "/v3/symbol/" + e, StatusCode: 403, Err: errors.New("premium endpoint")}
		}
		quotes = append(quotes, m.exchangeQuotes[e]...)
	}
	return quotes, nil
}

func (m *mockClient) fetchedSymbols() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, call := range m.quoteCalls {
		out = append(out, call...)
	}
	return out
}

// mockQuoteStore is an in-memory quote cache
type mockQuoteStore struct {
	mu           sync.Mutex
	quotes       map[string]models.QuoteSnapshot
	replaceCalls int
	addCalls     int
	addErr       error
}

func newMockQuoteStore(prices map[string]string) *mockQuoteStore {
	s := &mockQuoteStore{quotes: make(map[string]models.QuoteSnapshot)}
	for sym, p := range prices {
		s.quotes[sym] = models.QuoteSnapshot{Symbol: sym, Price: decimal.RequireFromString(p)}
	}
	return s
}

func (s *mockQuoteStore) BulkReplaceQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceCalls++
	for _, q := range quotes {
		delete(s.quotes, q.Symbol)
	}
	for _, q := range quotes {
		s.quotes[q.Symbol] = q
	}
	return nil
}

func (s *mockQuoteStore) AddBulkQuotes(ctx context.Context, quotes []models.QuoteSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCalls++
	if s.addErr != nil {
		return s.addErr
	}
	for _, q := range quotes {
		if _, ok := s.quotes[q.Symbol]; !ok {
			s.quotes[q.Symbol] = q
		}
	}
	return nil
}

func (s *mockQuoteStore) GetQuote(ctx context.Context, symbol string) (*models.QuoteSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (s *mockQuoteStore) GetQuotes(ctx context.Context, symbols []string) ([]models.QuoteSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.QuoteSnapshot
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *mockQuoteStore) CountQuotes(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.quotes)), nil
}

func (s *mockQuoteStore) price(symbol string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return ""
	}
	return q.Price.String()
}

// mockSubscriptions holds watchlists and positions in memory
type mockSubscriptions struct {
	mu             sync.Mutex
	watchlists     []models.Watchlist
	positions      []models.Position
	watchlistErr   error
	updateErr      error
	watchlistSaves int
	positionSaves  int
}

func (m *mockSubscriptions) GetAllWatchlists(ctx context.Context) ([]models.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchlistErr != nil {
		return nil, m.watchlistErr
	}
	return cloneWatchlists(m.watchlists), nil
}

func (m *mockSubscriptions) GetWatchlistsByUser(ctx context.Context, userID string) ([]models.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchlistErr != nil {
		return nil, m.watchlistErr
	}
	var out []models.Watchlist
	for _, w := range cloneWatchlists(m.watchlists) {
		if w.UserID == userID {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *mockSubscriptions) UpdateWatchlist(ctx context.Context, name, userID string, tickers []models.AlertTicker) (*models.Watchlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for i := range m.watchlists {
		if m.watchlists[i].Name == name && m.watchlists[i].UserID == userID {
			m.watchlists[i].Tickers = append([]models.AlertTicker(nil), tickers...)
			m.watchlistSaves++
			w := m.watchlists[i]
			return &w, nil
		}
	}
	return nil, errors.New("watchlist not found")
}

func (m *mockSubscriptions) GetAllPositions(ctx context.Context) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clonePositions(m.positions), nil
}

func (m *mockSubscriptions) GetPositionsByUser(ctx context.Context, userID string) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Position
	for _, p := range clonePositions(m.positions) {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockSubscriptions) UpdatePosition(ctx context.Context, name, userID string, tickers []models.PositionTicker) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	for i := range m.positions {
		if m.positions[i].Name == name && m.positions[i].UserID == userID {
			m.positions[i].Tickers = append([]models.PositionTicker(nil), tickers...)
			m.positionSaves++
			p := m.positions[i]
			return &p, nil
		}
	}
	return nil, errors.New("position not found")
}

func (m *mockSubscriptions) watchlist(userID, name string) models.Watchlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.watchlists {
		if w.UserID == userID && w.Name == name {
			return w
		}
	}
	return models.Watchlist{}
}

func cloneWatchlists(in []models.Watchlist) []models.Watchlist {
	out := make([]models.Watchlist, len(in))
	for i, w := range in {
		w.Tickers = append([]models.AlertTicker(nil), w.Tickers...)
		out[i] = w
	}
	return out
}

func clonePositions(in []models.Position) []models.Position {
	out := make([]models.Position, len(in))
	for i, p := range in {
		p.Tickers = append([]models.PositionTicker(nil), p.Tickers...)
		out[i] = p
	}
	return out
}

type mockUsers struct {
	users []models.User
	err   error
}

func (m *mockUsers) GetAllUsers(ctx context.Context) ([]models.User, error) {
	return m.users, m.err
}

// mockStateStore keeps the run state in memory
type mockStateStore struct {
	mu      sync.Mutex
	state   *models.RunState
	loadErr error
	saves   int
}

func (m *mockStateStore) LoadRunState(ctx context.Context, id string) (*models.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.state == nil {
		return nil, nil
	}
	s := *m.state
	return &s, nil
}

func (m *mockStateStore) SaveRunState(ctx context.Context, state *models.RunState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *state
	m.state = &s
	m.saves++
	return nil
}

func (m *mockStateStore) current() models.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return models.RunState{}
	}
	return *m.state
}

type sentEmail struct {
	kind   string
	to     string
	symbol string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (m *mockNotifier) SendAlertEmail(ctx context.Context, to, symbol string, current, target decimal.Decimal) error {
	return m.record("alert", to, symbol)
}

func (m *mockNotifier) SendSellAlertEmail(ctx context.Context, to, symbol string, current, target decimal.Decimal) error {
	return m.record("sell", to, symbol)
}

func (m *mockNotifier) record(kind, to, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentEmail{kind: kind, to: to, symbol: symbol})
	return m.err
}

func (m *mockNotifier) emails() []sentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentEmail(nil), m.sent...)
}

type mockPublisher struct {
	mu     sync.Mutex
	events []string
}

func (m *mockPublisher) add(event string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) PublishQuotesRefreshed(ctx context.Context, symbols []string) error {
	return m.add(models.EventQuotesRefreshed)
}

func (m *mockPublisher) PublishQuotesPopulated(ctx context.Context, count int) error {
	return m.add(models.EventQuotesPopulated)
}

func (m *mockPublisher) PublishAPILimitHit(ctx context.Context, resetAt time.Time) error {
	return m.add(models.EventAPILimitHit)
}

func (m *mockPublisher) PublishAlertTriggered(ctx context.Context, userID, symbol string, price, target decimal.Decimal) error {
	return m.add(models.EventAlertTriggered)
}

func (m *mockPublisher) PublishSellAlertTriggered(ctx context.Context, userID, symbol string, price, target decimal.Decimal) error {
	return m.add(models.EventSellAlertTriggered)
}

func (m *mockPublisher) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]string(nil), m.events...)
	sort.Strings(out)
	return out
}
