package content

import (
	"context"
	"fmt"
	"time"
)

// Store is the content-store contract consumed by the assistant handlers and
// the maintenance runner. Implementations must make RolloverPlan atomic: the
// ticket insert and the plan patch commit together or not at all.
type Store interface {
	// ResolveContext resolves the asset and its full location chain into a
	// denormalized bundle. Returns ErrNotFound when the asset is unknown.
	// A bundle whose Building is nil is an incomplete configuration, not an
	// error.
	ResolveContext(ctx context.Context, assetID string) (*ContextBundle, error)

	// GetAsset returns a single asset by id. Returns ErrNotFound when the
	// asset is unknown.
	GetAsset(ctx context.Context, assetID string) (*Asset, error)

	// DuePlans returns all active maintenance plans whose next due date is
	// on or before now.
	DuePlans(ctx context.Context, now time.Time) ([]MaintenancePlan, error)

	// RolloverPlan creates the ticket and advances the plan's execution
	// dates in a single atomic unit. A failure leaves both untouched.
	RolloverPlan(ctx context.Context, planID string, ticket Ticket, lastExecution, nextDue time.Time) error

	// CompleteTicket transitions a ticket to StatusCompleted and creates the
	// derived logbook entry, atomically with the status change.
	CompleteTicket(ctx context.Context, ticketID, summary string, completedAt time.Time) error
}

// maxChainDepth bounds the upward walk so a mis-configured parent cycle
// cannot hang a request.
const maxChainDepth = 16

// nodeLookup returns a location node by id, or ErrNotFound.
type nodeLookup func(id string) (*LocationNode, error)

// walkChain follows parent pointers from the asset's location upward,
// collecting nodes leaf → root and stopping the building search at the first
// ancestor of kind building. Both store implementations share this walk.
func walkChain(startID string, lookup nodeLookup) (chain []LocationNode, building *LocationNode, err error) {
	id := startID
	for depth := 0; id != ""; depth++ {
		if depth >= maxChainDepth {
			return nil, nil, fmt.Errorf("location chain exceeds depth %d starting at %q", maxChainDepth, startID)
		}
		node, err := lookup(id)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, *node)
		if building == nil && node.Kind == KindBuilding {
			b := *node
			building = &b
		}
		id = node.ParentID
	}
	return chain, building, nil
}
