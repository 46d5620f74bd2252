// Package content defines the facility content model and the Store interface
// the assistant and the maintenance runner consume.
//
// The content store is an external collaborator: it resolves the polymorphic
// location hierarchy (unit → floor → building → property, plus parking
// facilities) into denormalized context bundles and owns all persistence.
// Two implementations ship with this repo: a MongoDB-backed store for
// production and an in-memory store for tests and the CLI demo mode.
package content

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var ticketValidate = validator.New()

// ErrNotFound is returned when a referenced asset, plan, or location does
// not exist in the store.
var ErrNotFound = errors.New("content: not found")

// LocationKind is the closed set of location node types. The hierarchy is
// resolved by switching on this tag, not by dynamic dispatch.
type LocationKind string

const (
	KindUnit            LocationKind = "unit"
	KindFloor           LocationKind = "floor"
	KindBuilding        LocationKind = "building"
	KindParkingFacility LocationKind = "parkingFacility"
	KindProperty        LocationKind = "property"
)

// Valid reports whether k is one of the known location kinds.
func (k LocationKind) Valid() bool {
	switch k {
	case KindUnit, KindFloor, KindBuilding, KindParkingFacility, KindProperty:
		return true
	}
	return false
}

// LocationNode is one node of the polymorphic location hierarchy.
//
// ParentID points toward the root of the hierarchy and is empty for top-level
// nodes. PIN, TenantSlug, and Tenant are only meaningful on buildings; a
// building with an empty PIN is open access.
type LocationNode struct {
	ID         string       `json:"id" bson:"_id"`
	Kind       LocationKind `json:"kind" bson:"kind"`
	Name       string       `json:"name" bson:"name"`
	ParentID   string       `json:"parentId,omitempty" bson:"parent_id,omitempty"`
	PIN        string       `json:"-" bson:"pin,omitempty"`
	TenantSlug string       `json:"tenantSlug,omitempty" bson:"tenant_slug,omitempty"`
	Tenant     string       `json:"tenant,omitempty" bson:"tenant,omitempty"`
	Property   string       `json:"property,omitempty" bson:"property,omitempty"`
}

// Asset is a serviceable piece of equipment attached to at most one location
// node. Lifecycle fields feed the health scorer; the score itself is never
// persisted and is recomputed on demand.
type Asset struct {
	ID                    string     `json:"id" bson:"_id"`
	Name                  string     `json:"name" bson:"name"`
	LocationID            string     `json:"locationId,omitempty" bson:"location_id,omitempty"`
	InstallDate           *time.Time `json:"installDate,omitempty" bson:"install_date,omitempty"`
	ExpectedLifespanYears int        `json:"expectedLifespanYears,omitempty" bson:"expected_lifespan_years,omitempty"`
	RepairCount           int        `json:"repairCount" bson:"repair_count"`
	MaintenanceCount      int        `json:"maintenanceCount" bson:"maintenance_count"`
	// ManualCondition is an optional editor override on a fixed five-point
	// scale ("1" worst .. "5" best). Empty means no override.
	ManualCondition string `json:"manualCondition,omitempty" bson:"manual_condition,omitempty"`
}

// ServiceProvider is a contractor responsible for a trade within a tenant's
// portfolio (plumbing, heating, elevators, ...).
type ServiceProvider struct {
	ID    string `json:"id" bson:"_id"`
	Name  string `json:"name" bson:"name"`
	Trade string `json:"trade,omitempty" bson:"trade,omitempty"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

// Document is a denormalized reference to a manual, certificate, or plan
// drawing attached to the asset or its location chain.
type Document struct {
	Title string `json:"title" bson:"title"`
	URL   string `json:"url" bson:"url"`
}

// Frequency is the recurrence of a maintenance plan.
type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyBiannual  Frequency = "biannual"
	FrequencyAnnual    Frequency = "annual"
	FrequencyBiennial  Frequency = "biennial"
)

// MaintenancePlan is a recurring maintenance obligation. The rollover job is
// the only writer of NextDueDate and LastExecutionDate; editors own the rest.
// Plans are never deleted by the rollover job.
type MaintenancePlan struct {
	ID                 string    `json:"id" bson:"_id"`
	Title              string    `json:"title" bson:"title"`
	Description        string    `json:"description,omitempty" bson:"description,omitempty"`
	ScopeID            string    `json:"scopeId" bson:"scope_id"`
	TenantSlug         string    `json:"tenantSlug,omitempty" bson:"tenant_slug,omitempty"`
	AssignedProviderID string    `json:"assignedProviderId,omitempty" bson:"assigned_provider_id,omitempty"`
	Frequency          Frequency `json:"frequency" bson:"frequency"`
	NextDueDate        time.Time `json:"nextDueDate" bson:"next_due_date"`
	LastExecutionDate  time.Time `json:"lastExecutionDate,omitempty" bson:"last_execution_date,omitempty"`
	IsActive           bool      `json:"isActive" bson:"is_active"`
	Checklist          []string  `json:"checklist,omitempty" bson:"checklist,omitempty"`
}

// TicketStatus tracks a ticket through its workflow. The rollover job only
// ever creates tickets in StatusOpen; the remaining transitions belong to the
// ticket workflow (approve → in progress → completed, with a logbook entry
// created on completion).
type TicketStatus string

const (
	StatusPendingApproval TicketStatus = "pending_approval"
	StatusOpen            TicketStatus = "open"
	StatusApproved        TicketStatus = "approved"
	StatusRejected        TicketStatus = "rejected"
	StatusInProgress      TicketStatus = "in_progress"
	StatusCompleted       TicketStatus = "completed"
)

// Ticket is a unit of work for a provider. Tickets created by the rollover
// job carry ReportedByName "System" and are never updated by the job again.
type Ticket struct {
	ID                 string       `json:"id" bson:"_id" validate:"required"`
	Title              string       `json:"title" bson:"title" validate:"required"`
	Description        string       `json:"description,omitempty" bson:"description,omitempty"`
	Status             TicketStatus `json:"status" bson:"status" validate:"required"`
	Priority           string       `json:"priority" bson:"priority"`
	ScopeID            string       `json:"scopeId" bson:"scope_id"`
	TenantSlug         string       `json:"tenantSlug,omitempty" bson:"tenant_slug,omitempty"`
	AssignedProviderID string       `json:"assignedProviderId,omitempty" bson:"assigned_provider_id,omitempty"`
	ReportedByName     string       `json:"reportedByName" bson:"reported_by_name"`
	CreatedAt          time.Time    `json:"createdAt" bson:"created_at"`
}

// Validate checks the fields a ticket must carry before it is persisted.
// Both store implementations enforce this at the rollover boundary.
func (t *Ticket) Validate() error {
	if err := ticketValidate.Struct(t); err != nil {
		return fmt.Errorf("invalid ticket: %w", err)
	}
	return nil
}

// LogbookEntry records a completed piece of work against a location. Created
// exactly once when a ticket transitions to StatusCompleted.
type LogbookEntry struct {
	ID          string    `json:"id" bson:"_id"`
	TicketID    string    `json:"ticketId" bson:"ticket_id"`
	ScopeID     string    `json:"scopeId" bson:"scope_id"`
	Summary     string    `json:"summary" bson:"summary"`
	CompletedAt time.Time `json:"completedAt" bson:"completed_at"`
}

// ContextBundle is the denormalized context handed to the chat handler.
//
// LocationChain is ordered leaf → root. Building is the first ancestor of
// kind building, or nil when the chain never reaches one — an incomplete
// configuration, which is distinct from a failed authentication.
type ContextBundle struct {
	Asset            Asset             `json:"asset"`
	LocationChain    []LocationNode    `json:"locationChain"`
	Building         *LocationNode     `json:"building,omitempty"`
	ServiceProviders []ServiceProvider `json:"serviceProviders,omitempty"`
	Documents        []Document        `json:"documents,omitempty"`
}

// LocationName returns the name of the asset's immediate location, falling
// back to the asset name when the asset has no location.
func (b *ContextBundle) LocationName() string {
	if len(b.LocationChain) > 0 {
		return b.LocationChain[0].Name
	}
	return b.Asset.Name
}
