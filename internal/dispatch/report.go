package dispatch

import (
	"time"

	coreerrors "github.com/aevon-lab/trackgate/internal/core/errors"
)

// Provider failure kinds.
const (
	KindTransportError = coreerrors.KindProviderTransportError
	KindTimeout        = coreerrors.KindProviderTimeout
)

// Outcome is the result of one delivery attempt.
type Outcome struct {
	Provider    string        `json:"provider"`
	Succeeded   bool          `json:"succeeded"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	ErrorDetail string        `json:"error_detail,omitempty"`
	StatusCode  int           `json:"status_code,omitempty"`
	Latency     time.Duration `json:"latency_ns"`
}

// Report aggregates the outcomes of one dispatch.
// Attempted == Succeeded + len(Failed) always holds.
type Report struct {
	Attempted int       `json:"attempted"`
	Succeeded int       `json:"succeeded"`
	Failed    []Outcome `json:"failed"`

	// Outcomes holds every attempt in configured provider order.
	Outcomes []Outcome `json:"outcomes"`
}

func newReport(outcomes []Outcome) *Report {
	r := &Report{
		Attempted: len(outcomes),
		Failed:    []Outcome{},
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		if o.Succeeded {
			r.Succeeded++
		} else {
			r.Failed = append(r.Failed, o)
		}
	}
	return r
}

// AllSucceeded reports whether every attempted provider accepted the event.
func (r *Report) AllSucceeded() bool {
	return len(r.Failed) == 0
}
