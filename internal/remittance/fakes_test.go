package remittance

import (
	"context"
	"encoding/json"
	"otcsettle/internal/adapters"
	"otcsettle/internal/domain"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// --- Testify mocks ---

type MockCurrencyService struct{ mock.Mock }

func (m *MockCurrencyService) GetCurrencyByID(ctx context.Context, id int64) (*domain.Currency, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Currency)
	return c, args.Error(1)
}

func (m *MockCurrencyService) GetCurrencyByCode(ctx context.Context, code string) (*domain.Currency, error) {
	args := m.Called(ctx, code)
	c, _ := args.Get(0).(*domain.Currency)
	return c, args.Error(1)
}

type MockHolidayService struct{ mock.Mock }

func (m *MockHolidayService) GetHolidayByDate(ctx context.Context, date time.Time, country string) (*domain.Holiday, error) {
	args := m.Called(ctx, date, country)
	h, _ := args.Get(0).(*domain.Holiday)
	return h, args.Error(1)
}

type MockFeatureFlagService struct{ mock.Mock }

func (m *MockFeatureFlagService) GetFeatureSettingByName(ctx context.Context, name string) (*domain.FeatureSetting, error) {
	args := m.Called(ctx, name)
	f, _ := args.Get(0).(*domain.FeatureSetting)
	return f, args.Error(1)
}

type MockEventEmitter struct{ mock.Mock }

func (m *MockEventEmitter) Emit(ctx context.Context, event domain.Event) {
	m.Called(ctx, event)
}

func (m *MockEventEmitter) named(name domain.EventName) []domain.Event {
	var out []domain.Event
	for _, c := range m.Calls {
		if e := c.Arguments.Get(1).(domain.Event); e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// --- in-memory stores, they keep state across a run so properties can be checked on the result ---

type memRemittances struct {
	mu     sync.Mutex
	order  []uuid.UUID
	rows   map[uuid.UUID]domain.Remittance
	listed int
}

func newMemRemittances(rows ...domain.Remittance) *memRemittances {
	s := &memRemittances{rows: make(map[uuid.UUID]domain.Remittance)}
	for _, r := range rows {
		s.order = append(s.order, r.ID)
		s.rows[r.ID] = r
	}
	return s
}

func (s *memRemittances) GetAllByStatus(_ context.Context, status domain.RemittanceStatus, page adapters.Page) ([]domain.Remittance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listed++

	var matching []domain.Remittance
	for _, id := range s.order {
		if r := s.rows[id]; r.Status == status {
			matching = append(matching, r)
		}
	}
	if page.Offset >= len(matching) {
		return nil, nil
	}
	end := min(page.Offset+page.Limit, len(matching))
	return matching[page.Offset:end], nil
}

func (s *memRemittances) GetByID(_ context.Context, id uuid.UUID) (*domain.Remittance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, domain.ErrRemittanceNotFound
	}
	return &r, nil
}

func (s *memRemittances) Create(_ context.Context, r *domain.Remittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = append(s.order, r.ID)
	s.rows[r.ID] = *r
	return nil
}

func (s *memRemittances) Update(_ context.Context, r *domain.Remittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[r.ID]; !ok {
		return domain.ErrRemittanceNotFound
	}
	s.rows[r.ID] = *r
	return nil
}

func (s *memRemittances) get(id uuid.UUID) domain.Remittance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

func (s *memRemittances) all() []domain.Remittance {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Remittance, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}

type memLinks struct {
	mu    sync.Mutex
	links []domain.RemittanceOrderRemittance
}

func (s *memLinks) GetByRemittanceID(_ context.Context, remittanceID uuid.UUID) ([]domain.RemittanceOrderRemittance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RemittanceOrderRemittance
	for _, l := range s.links {
		if l.RemittanceID == remittanceID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memLinks) Create(_ context.Context, l *domain.RemittanceOrderRemittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.links = append(s.links, *l)
	return nil
}

func (s *memLinks) Update(_ context.Context, l *domain.RemittanceOrderRemittance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.links {
		if s.links[i].ID == l.ID {
			s.links[i] = *l
			return nil
		}
	}
	return domain.ErrRemittanceNotFound
}

// memGroups round-trips groups through JSON like the redis cache does, so unsaved mutations are lost.
type memGroups struct {
	mu     sync.Mutex
	groups map[string][]byte
}

func newMemGroups() *memGroups {
	return &memGroups{groups: make(map[string][]byte)}
}

func (s *memGroups) GetByKey(_ context.Context, key domain.GroupKey) (*domain.RemittanceCurrentGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.groups[key.String()]
	if !ok {
		return nil, nil
	}
	var g domain.RemittanceCurrentGroup
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *memGroups) CreateOrUpdate(_ context.Context, g *domain.RemittanceCurrentGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}
	s.groups[g.Key.String()] = raw
	return nil
}

func (s *memGroups) get(key domain.GroupKey) *domain.RemittanceCurrentGroup {
	g, _ := s.GetByKey(context.Background(), key)
	return g
}
