package content

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and the CLI demo mode.
//
// All maps are guarded by a single mutex; the rollover mutates plan and
// ticket state under one critical section, which gives the same atomicity
// guarantee the MongoDB implementation gets from a session transaction.
type MemoryStore struct {
	mu        sync.Mutex
	locations map[string]LocationNode
	assets    map[string]Asset
	providers map[string]ServiceProvider
	documents map[string][]Document // keyed by asset id
	plans     map[string]MaintenancePlan
	tickets   map[string]Ticket
	logbook   map[string]LogbookEntry

	// FailRollover forces the next RolloverPlan call to fail after
	// validation. Tests use it to assert that a failed rollover leaves the
	// plan untouched.
	FailRollover bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		locations: make(map[string]LocationNode),
		assets:    make(map[string]Asset),
		providers: make(map[string]ServiceProvider),
		documents: make(map[string][]Document),
		plans:     make(map[string]MaintenancePlan),
		tickets:   make(map[string]Ticket),
		logbook:   make(map[string]LogbookEntry),
	}
}

// PutLocation upserts a location node.
func (s *MemoryStore) PutLocation(n LocationNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[n.ID] = n
}

// PutAsset upserts an asset.
func (s *MemoryStore) PutAsset(a Asset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[a.ID] = a
}

// PutProvider upserts a service provider.
func (s *MemoryStore) PutProvider(p ServiceProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[p.ID] = p
}

// PutDocuments replaces the documents attached to an asset.
func (s *MemoryStore) PutDocuments(assetID string, docs []Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[assetID] = docs
}

// PutPlan upserts a maintenance plan.
func (s *MemoryStore) PutPlan(p MaintenancePlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

// PutTicket upserts a ticket.
func (s *MemoryStore) PutTicket(t Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets[t.ID] = t
}

// GetPlan returns a copy of a plan for test assertions.
func (s *MemoryStore) GetPlan(id string) (MaintenancePlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[id]
	return p, ok
}

// GetTicket returns a copy of a ticket for test assertions.
func (s *MemoryStore) GetTicket(id string) (Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	return t, ok
}

// Tickets returns all tickets sorted by id.
func (s *MemoryStore) Tickets() []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LogbookEntries returns all logbook entries sorted by id.
func (s *MemoryStore) LogbookEntries() []LogbookEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]LogbookEntry, 0, len(s.logbook))
	for _, e := range s.logbook {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ResolveContext implements Store.
func (s *MemoryStore) ResolveContext(_ context.Context, assetID string) (*ContextBundle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return nil, ErrNotFound
	}

	bundle := &ContextBundle{Asset: asset, Documents: s.documents[assetID]}
	if asset.LocationID != "" {
		chain, building, err := walkChain(asset.LocationID, func(id string) (*LocationNode, error) {
			n, ok := s.locations[id]
			if !ok {
				return nil, fmt.Errorf("location %q: %w", id, ErrNotFound)
			}
			return &n, nil
		})
		if err != nil {
			return nil, err
		}
		bundle.LocationChain = chain
		bundle.Building = building
	}

	if bundle.Building != nil && bundle.Building.TenantSlug != "" {
		for _, p := range s.providers {
			bundle.ServiceProviders = append(bundle.ServiceProviders, p)
		}
		sort.Slice(bundle.ServiceProviders, func(i, j int) bool {
			return bundle.ServiceProviders[i].ID < bundle.ServiceProviders[j].ID
		})
	}
	return bundle, nil
}

// GetAsset implements Store.
func (s *MemoryStore) GetAsset(_ context.Context, assetID string) (*Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[assetID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

// DuePlans implements Store.
func (s *MemoryStore) DuePlans(_ context.Context, now time.Time) ([]MaintenancePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []MaintenancePlan
	for _, p := range s.plans {
		if p.IsActive && !p.NextDueDate.After(now) {
			due = append(due, p)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

// RolloverPlan implements Store. The ticket insert and plan patch happen
// under one lock so a failure cannot leave a half-applied rollover.
func (s *MemoryStore) RolloverPlan(_ context.Context, planID string, ticket Ticket, lastExecution, nextDue time.Time) error {
	if err := ticket.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok {
		return fmt.Errorf("plan %q: %w", planID, ErrNotFound)
	}
	if s.FailRollover {
		s.FailRollover = false
		return fmt.Errorf("rollover of plan %q: simulated transaction failure", planID)
	}

	s.tickets[ticket.ID] = ticket
	plan.LastExecutionDate = lastExecution
	plan.NextDueDate = nextDue
	s.plans[planID] = plan
	return nil
}

// CompleteTicket implements Store.
func (s *MemoryStore) CompleteTicket(_ context.Context, ticketID, summary string, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return fmt.Errorf("ticket %q: %w", ticketID, ErrNotFound)
	}
	if t.Status == StatusCompleted {
		return fmt.Errorf("ticket %q is already completed", ticketID)
	}

	t.Status = StatusCompleted
	s.tickets[ticketID] = t
	entry := LogbookEntry{
		ID:          "logbook-" + ticketID,
		TicketID:    ticketID,
		ScopeID:     t.ScopeID,
		Summary:     summary,
		CompletedAt: completedAt,
	}
	s.logbook[entry.ID] = entry
	return nil
}

var _ Store = (*MemoryStore)(nil)
