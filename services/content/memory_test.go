package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedHierarchy builds a small tenant hierarchy:
//
//	property "Am Stadtpark" → building "Haus A" (PIN 1234) → floor 2 → unit 2.04
//
// with one asset ("heater-1") attached to the unit.
func seedHierarchy(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()

	store.PutLocation(LocationNode{ID: "prop-1", Kind: KindProperty, Name: "Am Stadtpark"})
	store.PutLocation(LocationNode{
		ID: "bldg-1", Kind: KindBuilding, Name: "Haus A", ParentID: "prop-1",
		PIN: "1234", TenantSlug: "stadtpark", Tenant: "Stadtpark Verwaltung",
	})
	store.PutLocation(LocationNode{ID: "floor-2", Kind: KindFloor, Name: "2. OG", ParentID: "bldg-1"})
	store.PutLocation(LocationNode{ID: "unit-204", Kind: KindUnit, Name: "Wohnung 2.04", ParentID: "floor-2"})
	store.PutAsset(Asset{ID: "heater-1", Name: "Gastherme", LocationID: "unit-204"})
	store.PutProvider(ServiceProvider{ID: "sp-1", Name: "Heizung Müller", Trade: "heating"})

	return store
}

func TestResolveContext_WalksChainToBuilding(t *testing.T) {
	store := seedHierarchy(t)

	bundle, err := store.ResolveContext(context.Background(), "heater-1")
	require.NoError(t, err)

	require.NotNil(t, bundle.Building)
	assert.Equal(t, "bldg-1", bundle.Building.ID)
	assert.Equal(t, "1234", bundle.Building.PIN)
	assert.Equal(t, "stadtpark", bundle.Building.TenantSlug)

	// Chain is leaf → root: unit, floor, building, property.
	require.Len(t, bundle.LocationChain, 4)
	assert.Equal(t, KindUnit, bundle.LocationChain[0].Kind)
	assert.Equal(t, KindProperty, bundle.LocationChain[3].Kind)
	assert.Equal(t, "Wohnung 2.04", bundle.LocationName())

	require.Len(t, bundle.ServiceProviders, 1)
	assert.Equal(t, "Heizung Müller", bundle.ServiceProviders[0].Name)
}

func TestResolveContext_UnknownAsset(t *testing.T) {
	store := seedHierarchy(t)

	_, err := store.ResolveContext(context.Background(), "no-such-asset")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveContext_ChainWithoutBuilding(t *testing.T) {
	store := NewMemoryStore()
	store.PutLocation(LocationNode{ID: "prop-1", Kind: KindProperty, Name: "Standalone Lot"})
	store.PutLocation(LocationNode{ID: "park-1", Kind: KindParkingFacility, Name: "Tiefgarage", ParentID: "prop-1"})
	store.PutAsset(Asset{ID: "gate-1", Name: "Schranke", LocationID: "park-1"})

	bundle, err := store.ResolveContext(context.Background(), "gate-1")
	require.NoError(t, err)

	// No building in the chain: incomplete configuration, not an error.
	assert.Nil(t, bundle.Building)
	assert.Len(t, bundle.LocationChain, 2)
}

func TestResolveContext_AssetWithoutLocation(t *testing.T) {
	store := NewMemoryStore()
	store.PutAsset(Asset{ID: "loose-1", Name: "Mobile Pumpe"})

	bundle, err := store.ResolveContext(context.Background(), "loose-1")
	require.NoError(t, err)
	assert.Nil(t, bundle.Building)
	assert.Empty(t, bundle.LocationChain)
	assert.Equal(t, "Mobile Pumpe", bundle.LocationName())
}

func TestResolveContext_CyclicChainFails(t *testing.T) {
	store := NewMemoryStore()
	store.PutLocation(LocationNode{ID: "a", Kind: KindFloor, Name: "A", ParentID: "b"})
	store.PutLocation(LocationNode{ID: "b", Kind: KindFloor, Name: "B", ParentID: "a"})
	store.PutAsset(Asset{ID: "asset-1", Name: "Lift", LocationID: "a"})

	_, err := store.ResolveContext(context.Background(), "asset-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}

func TestDuePlans_FiltersByDueDateAndActive(t *testing.T) {
	store := NewMemoryStore()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	store.PutPlan(MaintenancePlan{ID: "due", IsActive: true, NextDueDate: now.AddDate(0, 0, -3)})
	store.PutPlan(MaintenancePlan{ID: "due-today", IsActive: true, NextDueDate: now})
	store.PutPlan(MaintenancePlan{ID: "future", IsActive: true, NextDueDate: now.AddDate(0, 1, 0)})
	store.PutPlan(MaintenancePlan{ID: "inactive", IsActive: false, NextDueDate: now.AddDate(0, 0, -3)})

	due, err := store.DuePlans(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "due", due[0].ID)
	assert.Equal(t, "due-today", due[1].ID)
}

func TestRolloverPlan_Atomic(t *testing.T) {
	store := NewMemoryStore()
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutPlan(MaintenancePlan{ID: "plan-1", Title: "Filterwechsel", IsActive: true, NextDueDate: due})

	next := due.AddDate(0, 1, 0)
	today := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	ticket := Ticket{ID: "ticket-1", Title: "Maintenance: Filterwechsel", Status: StatusOpen}

	require.NoError(t, store.RolloverPlan(context.Background(), "plan-1", ticket, today, next))

	plan, _ := store.GetPlan("plan-1")
	assert.Equal(t, next, plan.NextDueDate)
	assert.Equal(t, today, plan.LastExecutionDate)
	_, created := store.GetTicket("ticket-1")
	assert.True(t, created)
}

func TestRolloverPlan_FailureLeavesPlanUntouched(t *testing.T) {
	store := NewMemoryStore()
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutPlan(MaintenancePlan{ID: "plan-1", IsActive: true, NextDueDate: due})
	store.FailRollover = true

	err := store.RolloverPlan(context.Background(), "plan-1",
		Ticket{ID: "ticket-1", Title: "Maintenance: Filterwechsel", Status: StatusOpen},
		due.AddDate(0, 0, 2), due.AddDate(0, 1, 0))
	require.Error(t, err)

	plan, _ := store.GetPlan("plan-1")
	assert.Equal(t, due, plan.NextDueDate, "failed rollover must not advance the due date")
	assert.True(t, plan.LastExecutionDate.IsZero())
	_, created := store.GetTicket("ticket-1")
	assert.False(t, created, "failed rollover must not leave an orphaned ticket")
}

func TestRolloverPlan_RejectsMalformedTicket(t *testing.T) {
	store := NewMemoryStore()
	due := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutPlan(MaintenancePlan{ID: "plan-1", Title: "Filterwechsel", IsActive: true, NextDueDate: due})

	err := store.RolloverPlan(context.Background(), "plan-1",
		Ticket{ID: "ticket-1"}, due.AddDate(0, 0, 2), due.AddDate(0, 1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ticket")

	plan, _ := store.GetPlan("plan-1")
	assert.Equal(t, due, plan.NextDueDate)
	assert.Empty(t, store.Tickets())
}

func TestCompleteTicket_CreatesLogbookEntryOnce(t *testing.T) {
	store := NewMemoryStore()
	store.PutTicket(Ticket{ID: "ticket-1", Status: StatusInProgress, ScopeID: "bldg-1"})

	done := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.CompleteTicket(context.Background(), "ticket-1", "Brenner getauscht", done))

	ticket, _ := store.GetTicket("ticket-1")
	assert.Equal(t, StatusCompleted, ticket.Status)
	entries := store.LogbookEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "ticket-1", entries[0].TicketID)
	assert.Equal(t, "Brenner getauscht", entries[0].Summary)

	// Completing twice is rejected and does not duplicate the entry.
	err := store.CompleteTicket(context.Background(), "ticket-1", "nochmal", done)
	require.Error(t, err)
	assert.Len(t, store.LogbookEntries(), 1)
}
