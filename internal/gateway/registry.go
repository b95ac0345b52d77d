package gateway

import (
	"fmt"
	"otcsettle/internal/adapters"
	"sync"
)

// Registry resolves market gateways by provider name. Registration order is kept, the first
// gateway registered under a name wins.
type Registry struct {
	mu     sync.RWMutex
	order  []adapters.MarketGateway
	byName map[string]adapters.MarketGateway
}

func (r *Registry) Register(gw adapters.MarketGateway) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := gw.ProviderName()
	if name == "" {
		return fmt.Errorf("gateway provider name is empty")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("gateway %q is already registered", name)
	}
	r.byName[name] = gw
	r.order = append(r.order, gw)
	return nil
}

func (r *Registry) Lookup(providerName string) (adapters.MarketGateway, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	gw, ok := r.byName[providerName]
	return gw, ok
}

// All returns the gateways in registration order.
func (r *Registry) All() []adapters.MarketGateway {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]adapters.MarketGateway, len(r.order))
	copy(out, r.order)
	return out
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]adapters.MarketGateway)}
}
