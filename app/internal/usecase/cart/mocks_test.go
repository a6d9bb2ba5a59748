package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
	domproduct "example.com/mechstore/app/internal/domain/product"
)

var errUpstream = errors.New("upstream unavailable")

type mockCartRepository struct {
	mu       sync.Mutex
	sessions map[string][]byte
	saveErr  error
	deleted  []string
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{sessions: make(map[string][]byte)}
}

func (m *mockCartRepository) Load(ctx context.Context, sessionID string) (*domcart.Snapshot, error) {
	m.mu.Lock()
	data, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil, domcart.ErrSessionNotFound
	}
	var snap domcart.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (m *mockCartRepository) Save(ctx context.Context, snap *domcart.Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[snap.SessionID] = data
	m.mu.Unlock()
	return nil
}

func (m *mockCartRepository) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.deleted = append(m.deleted, sessionID)
	m.mu.Unlock()
	return nil
}

type mockProductReader struct {
	products map[string]*domproduct.Product
	err      error
}

func (m *mockProductReader) GetProduct(ctx context.Context, id string) (*domproduct.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domproduct.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// mockServerCart is an in-memory upstream account cart. Failures can be
// injected per product and per operation.
type mockServerCart struct {
	mu       sync.Mutex
	catalog  map[string]*domproduct.Product
	items    []domcart.Item
	calls    []string
	options  map[string]domcart.Options
	addErr   map[string]error
	optErr   map[string]error
	opErr    error
	fetchErr error

	delay       time.Duration
	inflight    map[string]int
	maxInflight int
}

func newMockServerCart(catalog map[string]*domproduct.Product) *mockServerCart {
	return &mockServerCart{
		catalog:  catalog,
		options:  make(map[string]domcart.Options),
		addErr:   make(map[string]error),
		optErr:   make(map[string]error),
		inflight: make(map[string]int),
	}
}

func (m *mockServerCart) enter(op, productID string) {
	m.mu.Lock()
	m.calls = append(m.calls, op+":"+productID)
	m.inflight[productID]++
	if m.inflight[productID] > m.maxInflight {
		m.maxInflight = m.inflight[productID]
	}
	delay := m.delay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
}

func (m *mockServerCart) leave(productID string) {
	m.mu.Lock()
	m.inflight[productID]--
	m.mu.Unlock()
}

func (m *mockServerCart) find(productID string) int {
	for i, it := range m.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (m *mockServerCart) FetchCart(ctx context.Context) ([]domcart.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "fetch")
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	out := make([]domcart.Item, len(m.items))
	copy(out, m.items)
	return out, nil
}

func (m *mockServerCart) AddItem(ctx context.Context, productID string, quantity int64) (*domcart.Item, error) {
	m.enter("add", productID)
	defer m.leave(productID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.addErr[productID]; err != nil {
		return nil, err
	}
	if i := m.find(productID); i >= 0 {
		m.items[i].Quantity += quantity
		it := m.items[i]
		return &it, nil
	}
	p, ok := m.catalog[productID]
	if !ok {
		return nil, domproduct.ErrProductNotFound
	}
	it, err := p.ToItem(quantity)
	if err != nil {
		return nil, err
	}
	m.items = append(m.items, it)
	return &it, nil
}

func (m *mockServerCart) UpdateOptions(ctx context.Context, productID string, opts domcart.Options) error {
	m.enter("options", productID)
	defer m.leave(productID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.optErr[productID]; err != nil {
		return err
	}
	m.options[productID] = opts
	if i := m.find(productID); i >= 0 {
		if opts.PurchaseType != nil {
			m.items[i].PurchaseMode = *opts.PurchaseType
		}
		if opts.ResalePlanID != nil {
			m.items[i].SelectedPlanID = *opts.ResalePlanID
		}
		if opts.CompanyID != nil {
			m.items[i].CompanyID = *opts.CompanyID
		}
	}
	return nil
}

func (m *mockServerCart) Increase(ctx context.Context, productID string) error {
	m.enter("increase", productID)
	defer m.leave(productID)
	return m.step(productID, 1)
}

func (m *mockServerCart) Decrease(ctx context.Context, productID string) error {
	m.enter("decrease", productID)
	defer m.leave(productID)
	return m.step(productID, -1)
}

func (m *mockServerCart) RemoveItem(ctx context.Context, productID string) error {
	m.enter("remove", productID)
	defer m.leave(productID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opErr != nil {
		return m.opErr
	}
	if i := m.find(productID); i >= 0 {
		m.items = append(m.items[:i], m.items[i+1:]...)
	}
	return nil
}

func (m *mockServerCart) step(productID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opErr != nil {
		return m.opErr
	}
	if i := m.find(productID); i >= 0 {
		m.items[i].Quantity += delta
		if m.items[i].Quantity <= 0 {
			m.items = append(m.items[:i], m.items[i+1:]...)
		}
	}
	return nil
}

func (m *mockServerCart) callLog() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.calls))
	copy(out, m.calls)
	return out
}

type mockDiscountApplier struct {
	percents map[string]decimal.Decimal
	err      error
}

func (m *mockDiscountApplier) Apply(ctx context.Context, code string) (domdiscount.State, error) {
	if m.err != nil {
		return domdiscount.State{}, m.err
	}
	code = domdiscount.NormalizeCode(code)
	if code == "" {
		return domdiscount.State{}, domdiscount.ErrEmptyCode
	}
	p, ok := m.percents[code]
	if !ok {
		return domdiscount.State{}, domdiscount.ErrInvalidCode
	}
	return domdiscount.NewState(code, p)
}

func testCatalog() map[string]*domproduct.Product {
	return map[string]*domproduct.Product{
		"drill": {
			ID:    "drill",
			Name:  "Cordless Drill",
			Price: decimal.NewFromInt(100),
			Plans: []domproduct.PlanTerms{
				{ID: "r3", Months: 3, ProfitPercentage: decimal.NewFromInt(10)},
				{ID: "r6", Months: 6, ProfitPercentage: decimal.NewFromInt(20)},
			},
		},
		"saw": {
			ID:    "saw",
			Name:  "Hand Saw",
			Price: decimal.NewFromInt(50),
		},
	}
}

type testEnv struct {
	svc       *Service
	repo      *mockCartRepository
	products  *mockProductReader
	server    *mockServerCart
	discounts *mockDiscountApplier
}

func newTestEnv() *testEnv {
	return newTestEnvWithCatalog(testCatalog())
}

func newTestEnvWithCatalog(catalog map[string]*domproduct.Product) *testEnv {
	env := &testEnv{
		repo:     newMockCartRepository(),
		products: &mockProductReader{products: catalog},
		server:   newMockServerCart(catalog),
		discounts: &mockDiscountApplier{percents: map[string]decimal.Decimal{
			"SAVE10": decimal.NewFromInt(10),
		}},
	}
	env.svc = NewService(Dependencies{
		Repository: env.repo,
		Products:   env.products,
		Servers: ServerCartFunc(func(token string) ServerCart {
			return env.server
		}),
		Discounts:       env.discounts,
		UpstreamTimeout: time.Second,
	})
	return env
}
