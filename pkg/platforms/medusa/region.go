package medusa

import (
	"context"
	"sync"

	"github.com/worldofchami/medusa-mcp/pkg/models"
)

// DefaultCurrency is assumed until a region says otherwise.
const DefaultCurrency = "usd"

// Region is the pricing context sent with product queries and orders.
type Region struct {
	ID           string
	CurrencyCode string
}

// Resolved reports whether the region came from the backend.
func (r Region) Resolved() bool { return r.ID != "" }

// Regions lazily resolves the store's default region (the first one listed)
// and caches it for the life of the client. A failed or empty lookup is not
// cached, so the next call retries.
type Regions struct {
	client *Client
	mu     sync.RWMutex
	region Region
}

func NewRegions(client *Client) *Regions {
	return &Regions{client: client}
}

// Get returns the cached region, resolving it first if needed. Lookup
// failures are logged and yield the default context.
func (r *Regions) Get(ctx context.Context) Region {
	r.mu.RLock()
	region := r.region
	r.mu.RUnlock()
	if region.Resolved() {
		return region
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if r.region.Resolved() {
		return r.region
	}

	var list models.MedusaRegionList
	if err := r.client.get(ctx, "/store/regions", nil, &list); err != nil {
		r.client.log.WithError(err).Warn("failed to fetch regions")
		return Region{CurrencyCode: DefaultCurrency}
	}
	if len(list.Regions) == 0 {
		return Region{CurrencyCode: DefaultCurrency}
	}

	first := list.Regions[0]
	r.region = Region{ID: first.ID, CurrencyCode: DefaultCurrency}
	if first.CurrencyCode != nil && *first.CurrencyCode != "" {
		r.region.CurrencyCode = *first.CurrencyCode
	}
	r.client.log.WithField("region_id", r.region.ID).Info("resolved store region")
	return r.region
}
