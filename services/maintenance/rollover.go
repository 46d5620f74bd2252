// Package maintenance implements the recurring maintenance-plan rollover:
// finding due plans, advancing their due dates, and creating the matching
// tickets. Each plan is one atomic unit of work; a bad plan never aborts the
// batch.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/facilitydesk/facilitydesk/services/content"
)

// systemReporter is the fixed identity stamped on tickets the rollover
// creates.
const systemReporter = "System"

// Advance returns the next due date for a plan of the given frequency.
//
// The base is always the plan's stored due date, never the wall clock: a
// monthly plan due on the 1st that rolls over on the 3rd still advances to
// next month's 1st. Running the rollover twice on the same stale date
// therefore produces the same result, not a doubled advancement. Unknown
// frequencies advance by one month.
func Advance(d time.Time, f content.Frequency) time.Time {
	switch f {
	case content.FrequencyMonthly:
		return d.AddDate(0, 1, 0)
	case content.FrequencyQuarterly:
		return d.AddDate(0, 3, 0)
	case content.FrequencyBiannual:
		return d.AddDate(0, 6, 0)
	case content.FrequencyAnnual:
		return d.AddDate(1, 0, 0)
	case content.FrequencyBiennial:
		return d.AddDate(2, 0, 0)
	default:
		slog.Warn("Unrecognized plan frequency, defaulting to monthly", "frequency", string(f))
		return d.AddDate(0, 1, 0)
	}
}

// Report summarizes one rollover run. Errors and Details carry per-plan
// outcomes; a populated Errors slice does not mean the run failed.
type Report struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
	Details []string `json:"details"`
}

// Message renders a one-line human summary of the report.
func (r Report) Message() string {
	return fmt.Sprintf("maintenance rollover: %d tickets created, %d plans advanced, %d skipped, %d errors",
		r.Created, r.Updated, r.Skipped, len(r.Errors))
}

// Runner executes rollover runs against a content store.
type Runner struct {
	store content.Store
}

// NewRunner returns a Runner over the given store.
func NewRunner(store content.Store) *Runner {
	return &Runner{store: store}
}

// Run processes every plan due at the given time.
//
// Plans are handled independently and sequentially: a plan without a scope
// reference is skipped (data quality, not a fault), a failing rollover is
// recorded and the run continues. Only a store-level failure to list due
// plans aborts the run.
func (r *Runner) Run(ctx context.Context, now time.Time) (Report, error) {
	report := Report{Errors: []string{}, Details: []string{}}

	due, err := r.store.DuePlans(ctx, now)
	if err != nil {
		return report, fmt.Errorf("query due plans: %w", err)
	}
	slog.Info("Maintenance rollover starting", "due_plans", len(due))

	for _, plan := range due {
		if plan.ScopeID == "" {
			slog.Warn("Skipping plan without scope reference", "plan_id", plan.ID, "title", plan.Title)
			report.Skipped++
			report.Details = append(report.Details,
				fmt.Sprintf("skipped %q (%s): no scope reference", plan.Title, plan.ID))
			continue
		}

		nextDue := Advance(plan.NextDueDate, plan.Frequency)
		ticket := buildTicket(plan, now)

		if err := r.store.RolloverPlan(ctx, plan.ID, ticket, now, nextDue); err != nil {
			slog.Error("Plan rollover failed", "plan_id", plan.ID, "error", err)
			report.Errors = append(report.Errors,
				fmt.Sprintf("plan %q (%s): %v", plan.Title, plan.ID, err))
			continue
		}

		report.Created++
		report.Updated++
		report.Details = append(report.Details,
			fmt.Sprintf("created ticket %s for %q, next due %s",
				ticket.ID, plan.Title, nextDue.Format("2006-01-02")))
	}

	slog.Info("Maintenance rollover finished",
		"created", report.Created, "skipped", report.Skipped, "errors", len(report.Errors))
	return report, nil
}

func buildTicket(plan content.MaintenancePlan, now time.Time) content.Ticket {
	description := plan.Description
	if description == "" {
		description = fmt.Sprintf("Scheduled maintenance generated from plan %q.", plan.Title)
	}
	return content.Ticket{
		ID:                 uuid.NewString(),
		Title:              "Maintenance: " + plan.Title,
		Description:        description,
		Status:             content.StatusOpen,
		Priority:           "medium",
		ScopeID:            plan.ScopeID,
		TenantSlug:         plan.TenantSlug,
		AssignedProviderID: plan.AssignedProviderID,
		ReportedByName:     systemReporter,
		CreatedAt:          now,
	}
}
