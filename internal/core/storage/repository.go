package storage

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/trackgate/internal/api/v1"
	"github.com/aevon-lab/trackgate/internal/dispatch"
)

// ReportStore is the append-only delivery log. Rows are written for audit only
// and never read back for redelivery.
type ReportStore interface {
	// SaveReport records the outcome of one dispatch.
	SaveReport(ctx context.Context, event *v1.TrackingEvent, report *dispatch.Report, dispatchedAt time.Time) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
