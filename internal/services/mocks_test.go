package services_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/quotevault/histprice-service/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockSymbolRepo is an in-memory SymbolRepository
type mockSymbolRepo struct {
	mu      sync.Mutex
	symbols map[string]*domain.TrackedSymbol
	nextID  int64

	getErr    error
	createErr error
	updateErr error
	listErr   error
}

func newMockSymbolRepo() *mockSymbolRepo {
	return &mockSymbolRepo{symbols: make(map[string]*domain.TrackedSymbol)}
}

func (m *mockSymbolRepo) Create(ctx context.Context, symbol *domain.TrackedSymbol) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	symbol.ID = m.nextID
	cp := *symbol
	m.symbols[symbol.Name] = &cp
	return nil
}

func (m *mockSymbolRepo) GetByName(ctx context.Context, name string) (*domain.TrackedSymbol, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.symbols[name]
	if !ok {
		return nil, domain.ErrSymbolNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockSymbolRepo) List(ctx context.Context) ([]*domain.TrackedSymbol, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.TrackedSymbol
	for _, s := range m.symbols {
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *mockSymbolRepo) ListActive(ctx context.Context) ([]*domain.TrackedSymbol, error) {
	all, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.TrackedSymbol
	for _, s := range all {
		if s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSymbolRepo) Update(ctx context.Context, symbol *domain.TrackedSymbol) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.symbols[symbol.Name]; !ok {
		return domain.ErrSymbolNotFound
	}
	cp := *symbol
	m.symbols[symbol.Name] = &cp
	return nil
}

func (m *mockSymbolRepo) RecordAttempt(ctx context.Context, name string, at time.Time, status domain.AttemptStatus, lastError *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.symbols[name]
	if !ok {
		return domain.ErrSymbolNotFound
	}
	s.LastAttemptAt = &at
	s.LastAttemptStatus = status
	s.LastError = lastError
	return nil
}

func (m *mockSymbolRepo) Exists(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.symbols[name]
	return ok, nil
}

func (m *mockSymbolRepo) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.symbols), nil
}

func (m *mockSymbolRepo) CountActive(ctx context.Context) (int, error) {
	active, err := m.ListActive(ctx)
	return len(active), err
}

// mockSourceClient serves canned documents per symbol
type mockSourceClient struct {
	mu    sync.Mutex
	docs  map[string][]byte
	errs  map[string]error
	calls []string
}

func newMockSourceClient() *mockSourceClient {
	return &mockSourceClient{
		docs: make(map[string][]byte),
		errs: make(map[string]error),
	}
}

func (m *mockSourceClient) FetchHistory(ctx context.Context, symbol string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, symbol)
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	return m.docs[symbol], nil
}

func (m *mockSourceClient) Ping(ctx context.Context) error { return nil }

// mockParser returns canned results per symbol
type mockParser struct {
	points map[string][]domain.PricePoint
	errs   map[string]error
}

func newMockParser() *mockParser {
	return &mockParser{
		points: make(map[string][]domain.PricePoint),
		errs:   make(map[string]error),
	}
}

func (m *mockParser) Parse(symbol string, doc []byte) ([]domain.PricePoint, error) {
	if err, ok := m.errs[symbol]; ok {
		return nil, err
	}
	return m.points[symbol], nil
}

// mockPriceRepo records upserts
type mockPriceRepo struct {
	mu      sync.Mutex
	upserts map[string][]domain.PricePoint
	err     error
}

func newMockPriceRepo() *mockPriceRepo {
	return &mockPriceRepo{upserts: make(map[string][]domain.PricePoint)}
}

func (m *mockPriceRepo) Upsert(ctx context.Context, symbol string, points []domain.PricePoint) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts[symbol] = append(m.upserts[symbol], points...)
	return len(points), nil
}

func (m *mockPriceRepo) History(ctx context.Context, symbol string, limit int) ([]*domain.PricePoint, error) {
	return nil, nil
}

func (m *mockPriceRepo) CountBySymbol(ctx context.Context, symbol string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.upserts[symbol])), nil
}

func (m *mockPriceRepo) Count(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, pts := range m.upserts {
		n += int64(len(pts))
	}
	return n, nil
}
