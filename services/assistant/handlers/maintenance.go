package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"

	"github.com/facilitydesk/facilitydesk/services/assistant/datatypes"
	"github.com/facilitydesk/facilitydesk/services/assistant/observability"
	"github.com/facilitydesk/facilitydesk/services/maintenance"
)

// HandleMaintenanceRollover serves the authenticated maintenance trigger.
// The run itself is idempotent per plan, so external cron services may call
// it repeatedly without double-advancing any plan.
func HandleMaintenanceRollover(runner *maintenance.Runner, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleMaintenanceRollover")
		defer span.End()

		runCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		report, err := runner.Run(runCtx, time.Now().UTC())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Maintenance rollover run failed", "error", err)
			observability.RecordRolloverRun("http", "error")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Maintenance run failed"})
			return
		}

		observability.RecordRolloverRun("http", "success")
		observability.RecordTicketsCreated(report.Created)
		c.JSON(http.StatusOK, datatypes.RolloverResponse{
			Created: report.Created,
			Updated: report.Updated,
			Skipped: report.Skipped,
			Errors:  report.Errors,
			Details: report.Details,
			Message: report.Message(),
		})
	}
}
