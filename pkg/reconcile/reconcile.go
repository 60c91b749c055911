// Package reconcile merges batches of candidate records into the content
// store without creating duplicates or losing newer local state.
//
// Two policies cover the two kinds of producers:
//
//   - PolicyUpsert (externally sourced records): match on
//     (sourceKind, externalKey), update in place, insert when absent.
//     Safe under repeated runs.
//   - PolicyFreshness (file-backed records such as journal days): only
//     overwrite when the candidate's source-modified time is strictly
//     newer than the stored one, so a stale re-fetch never clobbers a
//     newer local edit.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dartungar/digital-butler-sub001/pkg/store"
)

// ErrInvalidRecord marks a malformed candidate: one carrying neither an
// external key nor a body.
var ErrInvalidRecord = errors.New("invalid record")

// Policy selects how a candidate is merged into the store.
type Policy string

const (
	// PolicyUpsert performs an identity-keyed upsert, last write wins.
	PolicyUpsert Policy = "upsert"
	// PolicyFreshness gates the write on a strictly newer source
	// modification time.
	PolicyFreshness Policy = "freshness"
)

// Candidate is a record proposed by a producer, tagged with the merge
// policy its source requires.
type Candidate struct {
	store.Record
	Policy Policy
}

// RecordError pairs a failed candidate with its failure.
type RecordError struct {
	SourceKind  string
	ExternalKey string
	Err         error
}

// Result aggregates one batch: per-candidate outcomes plus isolated
// failures. A failed candidate never aborts the rest of the batch.
type Result struct {
	Added     int
	Updated   int
	Unchanged int
	Errors    []RecordError
}

// Reconciler applies candidate batches against the store.
type Reconciler struct {
	store       *store.Store
	granularity time.Duration
	logger      zerolog.Logger
}

// New creates a reconciler. granularity is the resolution used for
// freshness comparisons; non-positive values default to one second.
func New(st *store.Store, granularity time.Duration, logger zerolog.Logger) *Reconciler {
	if granularity <= 0 {
		granularity = time.Second
	}
	return &Reconciler{
		store:       st,
		granularity: granularity,
		logger:      logger.With().Str("component", "reconciler").Logger(),
	}
}

// Reconcile merges a batch of candidates. The returned error covers only
// batch-level failures (such as a cancelled context); per-record failures
// are collected in Result.Errors.
func (r *Reconciler) Reconcile(ctx context.Context, candidates []Candidate) (Result, error) {
	var res Result

	for i := range candidates {
		cand := &candidates[i]

		if err := ctx.Err(); err != nil {
			return res, err
		}

		outcome, err := r.reconcileOne(ctx, cand)
		if err != nil {
			res.Errors = append(res.Errors, RecordError{
				SourceKind:  cand.SourceKind,
				ExternalKey: derefKey(cand.ExternalKey),
				Err:         err,
			})
			r.logger.Warn().Err(err).
				Str("source", cand.SourceKind).
				Str("key", derefKey(cand.ExternalKey)).
				Msg("Failed to reconcile record")
			continue
		}

		switch outcome {
		case outcomeAdded:
			res.Added++
		case outcomeUpdated:
			res.Updated++
		case outcomeUnchanged:
			res.Unchanged++
		}
	}

	return res, nil
}

type outcome int

const (
	outcomeAdded outcome = iota
	outcomeUpdated
	outcomeUnchanged
)

func (r *Reconciler) reconcileOne(ctx context.Context, cand *Candidate) (outcome, error) {
	if cand.ExternalKey == nil && cand.Body == "" {
		return 0, fmt.Errorf("%w: missing both external key and body", ErrInvalidRecord)
	}

	switch cand.Policy {
	case PolicyFreshness:
		return r.applyFreshness(ctx, cand)
	case PolicyUpsert, "":
		return r.applyUpsert(ctx, cand)
	default:
		return 0, fmt.Errorf("unknown policy %q", cand.Policy)
	}
}

// applyUpsert implements the identity-keyed upsert. Records without an
// external key have no identity beyond their internal id and are always
// inserted fresh.
func (r *Reconciler) applyUpsert(ctx context.Context, cand *Candidate) (outcome, error) {
	if cand.ExternalKey == nil {
		return r.insert(ctx, cand)
	}

	existing, err := r.store.GetRecordByIdentity(ctx, cand.SourceKind, *cand.ExternalKey)
	if errors.Is(err, store.ErrNotFound) {
		return r.insert(ctx, cand)
	}
	if err != nil {
		return 0, err
	}

	unchanged := existing.SameContent(&cand.Record)

	updated := *existing
	updated.Title = cand.Title
	updated.Body = cand.Body
	updated.Category = cand.Category
	updated.RelevanceAt = cand.RelevanceAt
	updated.SourceModifiedAt = cand.SourceModifiedAt
	if !unchanged {
		updated.UpdatedAt = time.Now()
	}

	// The write happens either way; an identical candidate simply leaves
	// every observable field (and the audit timestamp) as it was.
	if err := r.store.UpdateRecord(ctx, &updated); err != nil {
		return 0, err
	}

	if unchanged {
		return outcomeUnchanged, nil
	}
	return outcomeUpdated, nil
}

// applyFreshness implements the freshness-gated upsert keyed on the
// candidate's natural key.
func (r *Reconciler) applyFreshness(ctx context.Context, cand *Candidate) (outcome, error) {
	if cand.ExternalKey == nil {
		return 0, fmt.Errorf("%w: freshness policy requires a natural key", ErrInvalidRecord)
	}

	existing, err := r.store.GetRecordByIdentity(ctx, cand.SourceKind, *cand.ExternalKey)
	if errors.Is(err, store.ErrNotFound) {
		return r.insert(ctx, cand)
	}
	if err != nil {
		return 0, err
	}

	if !r.strictlyNewer(cand.SourceModifiedAt, existing.SourceModifiedAt) {
		return outcomeUnchanged, nil
	}

	updated := *existing
	updated.Title = cand.Title
	updated.Body = cand.Body
	updated.Category = cand.Category
	updated.RelevanceAt = cand.RelevanceAt
	updated.SourceModifiedAt = cand.SourceModifiedAt
	updated.UpdatedAt = time.Now()

	if err := r.store.UpdateRecord(ctx, &updated); err != nil {
		return 0, err
	}
	return outcomeUpdated, nil
}

func (r *Reconciler) insert(ctx context.Context, cand *Candidate) (outcome, error) {
	rec := cand.Record
	rec.ID = ""
	rec.CreatedAt = time.Time{}
	rec.UpdatedAt = time.Time{}
	if err := r.store.InsertRecord(ctx, &rec); err != nil {
		return 0, err
	}
	return outcomeAdded, nil
}

// strictlyNewer compares source modification times at the configured
// granularity. A candidate without a timestamp cannot prove freshness; a
// stored row without one is always overwritable.
func (r *Reconciler) strictlyNewer(candidate, stored *time.Time) bool {
	if candidate == nil {
		return false
	}
	if stored == nil {
		return true
	}
	return candidate.Truncate(r.granularity).After(stored.Truncate(r.granularity))
}

func derefKey(k *string) string {
	if k == nil {
		return ""
	}
	return *k
}
