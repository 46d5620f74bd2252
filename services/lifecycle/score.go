// Package lifecycle implements predictive asset health scoring.
//
// The score blends age-based depreciation with repair and maintenance
// counters and an optional manual condition override. Scoring is a pure
// function of the asset and a caller-supplied reference time; nothing is
// persisted and identical inputs always produce identical outputs.
package lifecycle

import (
	"math"
	"time"

	"github.com/facilitydesk/facilitydesk/services/content"
)

// Status is the health tier derived from the numeric score.
type Status string

const (
	StatusCritical  Status = "critical"
	StatusWarning   Status = "warning"
	StatusGood      Status = "good"
	StatusExcellent Status = "excellent"
)

// Result is the outcome of scoring one asset.
type Result struct {
	Score          int    `json:"score"`
	Status         Status `json:"status"`
	Color          string `json:"color"`
	Label          string `json:"label"`
	Recommendation string `json:"recommendation"`
}

// repairPenalty is subtracted per recorded repair; repairs are destructive
// evidence about the asset's condition.
const repairPenalty = 5

// maintenanceBonus is added per recorded maintenance, but only while the
// asset still has a positive score. Maintenance credit must not revive an
// asset the depreciation and repair history have already zeroed out.
const maintenanceBonus = 2

// moneyPitThreshold and moneyPitCap implement the recurring-failure
// override: more than three repairs caps the score at 20 no matter what the
// other signals say.
const (
	moneyPitThreshold = 3
	moneyPitCap       = 20
)

// manualReference maps the five-point manual condition scale to a reference
// score. Both the numeric codes and their editor-facing names are accepted;
// unknown codes are ignored.
var manualReference = map[string]int{
	"5": 100, "excellent": 100,
	"4": 80, "good": 80,
	"3": 50, "fair": 50,
	"2": 30, "poor": 30,
	"1": 10, "critical": 20,
}

var tiers = []struct {
	min            int
	status         Status
	color          string
	label          string
	recommendation string
}{
	{80, StatusExcellent, "#22c55e", "Excellent", "No action needed."},
	{50, StatusGood, "#84cc16", "Good", "Continue the regular maintenance schedule."},
	{25, StatusWarning, "#f59e0b", "Aging", "Plan budget for replacement within the next years."},
	{0, StatusCritical, "#ef4444", "Critical", "Replacement or major overhaul recommended."},
}

// Score computes the health of an asset at the given reference time.
//
// Assets without an install date or expected lifespan cannot be scored and
// come back as critical with score 0.
func Score(asset content.Asset, now time.Time) Result {
	if asset.InstallDate == nil || asset.ExpectedLifespanYears == 0 {
		return Result{
			Score:          0,
			Status:         StatusCritical,
			Color:          "#6b7280",
			Label:          "Unknown",
			Recommendation: "Missing install date or expected lifespan; record them to enable scoring.",
		}
	}

	age := wholeYearsBetween(*asset.InstallDate, now)
	lifespan := asset.ExpectedLifespanYears
	if lifespan < 1 {
		lifespan = 1
	}

	baseHealth := math.Max(0, float64(lifespan-age)/float64(lifespan)*100)

	score := baseHealth - float64(repairPenalty*asset.RepairCount)
	if score > 0 {
		score += float64(maintenanceBonus * asset.MaintenanceCount)
	}
	if asset.RepairCount > moneyPitThreshold && score > moneyPitCap {
		score = moneyPitCap
	}

	if ref, ok := manualReference[asset.ManualCondition]; ok {
		if ref <= moneyPitCap {
			// A human calling the asset critical is trusted unconditionally.
			score = float64(ref)
		} else {
			score = (score + float64(ref)) / 2
		}
	}

	final := int(math.Round(math.Min(100, math.Max(0, score))))
	return tierFor(final)
}

// wholeYearsBetween returns the floored number of whole years from start to
// end, never negative.
func wholeYearsBetween(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	years := end.Year() - start.Year()
	anniversary := start.AddDate(years, 0, 0)
	if anniversary.After(end) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

func tierFor(score int) Result {
	for _, tier := range tiers {
		if score >= tier.min {
			return Result{
				Score:          score,
				Status:         tier.status,
				Color:          tier.color,
				Label:          tier.label,
				Recommendation: tier.recommendation,
			}
		}
	}
	// score is clamped to [0,100], so the 0-threshold tier always matches.
	return Result{Score: score, Status: StatusCritical}
}
