// Package sources turns external artifacts (journal files, exported
// feeds) into candidate records for reconciliation. Sources only produce
// candidates; deduplication and freshness decisions belong to the
// reconciler.
package sources

import (
	"context"

	"github.com/dartungar/digital-butler-sub001/pkg/reconcile"
)

// Source produces candidate records from one external artifact kind.
type Source interface {
	// Name identifies the source in logs and sync summaries.
	Name() string
	// Fetch reads the source and returns candidates. Individual malformed
	// items are skipped and logged; an error means the source as a whole
	// could not be read.
	Fetch(ctx context.Context) ([]reconcile.Candidate, error)
}
