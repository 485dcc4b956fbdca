package accelerator

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Querier reports per-device memory for one vendor.
type Querier interface {
	// Vendor returns the tag this querier serves.
	Vendor() Vendor
	// Query invokes the vendor's tooling through r.
	Query(ctx context.Context, r Runner) ([]Device, error)
}

var (
	mu       sync.RWMutex
	queriers = make(map[Vendor]Querier)
)

// Register adds a querier to the global registry.
func Register(q Querier) {
	mu.Lock()
	defer mu.Unlock()
	queriers[q.Vendor()] = q
}

// Get returns the querier for vendor v.
func Get(v Vendor) (Querier, error) {
	mu.RLock()
	defer mu.RUnlock()
	q, ok := queriers[v]
	if !ok {
		return nil, &ToolError{Tool: string(v), Err: fmt.Errorf("no memory query registered for vendor %s", v)}
	}
	return q, nil
}

// List returns all registered vendors, sorted.
func List() []Vendor {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Vendor, 0, len(queriers))
	for v := range queriers {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
