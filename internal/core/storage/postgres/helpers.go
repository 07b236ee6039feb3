package postgres

import (
	"encoding/json"
	"fmt"

	"github.com/aevon-lab/trackgate/internal/dispatch"
)

// marshalReportJSON marshals the failed and full outcome lists for the jsonb columns.
// Empty lists are stored as "[]" rather than SQL NULL.
func marshalReportJSON(report *dispatch.Report) (failedJSON, outcomesJSON []byte, err error) {
	failed := report.Failed
	if failed == nil {
		failed = []dispatch.Outcome{}
	}
	failedJSON, err = json.Marshal(failed)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal failed outcomes: %w", err)
	}

	outcomes := report.Outcomes
	if outcomes == nil {
		outcomes = []dispatch.Outcome{}
	}
	outcomesJSON, err = json.Marshal(outcomes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal outcomes: %w", err)
	}

	return failedJSON, outcomesJSON, nil
}
