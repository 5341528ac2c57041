// Package importer drives the lead batch import: validate, classify against
// the dedup index, merge or queue for insert, persist in bounded partitions,
// and aggregate results.
package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/favalepink/traincrm/internal/audit"
	"github.com/favalepink/traincrm/internal/lead"
)

// ErrEmptyImport is returned when an import request carries no records.
var ErrEmptyImport = eris.New("importer: no lead records provided")

// DefaultBatchSize bounds the size of a single bulk-insert call. It stays well
// under typical payload and statement-time limits.
const DefaultBatchSize = 100

// Options tunes an Importer.
type Options struct {
	BatchSize             int
	MaxParallelPartitions int
	DefaultCampaign       string
}

// Importer runs batch imports against a lead store.
type Importer struct {
	store     lead.Store
	recorder  audit.Recorder
	validator *lead.Validator
	batchSize int
	parallel  int
}

// New creates an Importer. Zero option fields fall back to safe defaults
// (batch size 100, sequential partition execution).
func New(store lead.Store, recorder audit.Recorder, opts Options) *Importer {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxParallelPartitions < 1 {
		opts.MaxParallelPartitions = 1
	}
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Importer{
		store:     store,
		recorder:  recorder,
		validator: lead.NewValidator(opts.DefaultCampaign),
		batchSize: opts.BatchSize,
		parallel:  opts.MaxParallelPartitions,
	}
}

// insertCandidate is a validated record with no match in the dedup index.
type insertCandidate struct {
	lead lead.Lead
	raw  lead.RawRecord
}

// updateCandidate is a validated record matched to an existing lead, with its
// merge payload already resolved against the fetch-phase tag snapshot.
type updateCandidate struct {
	payload lead.Lead
	raw     lead.RawRecord
}

// Run imports records in a single pass. Validation and per-record write
// failures are recorded in the result and never abort the run; only a failure
// to fetch the dedup baseline is fatal, and it happens before any write.
// Cancellation is honored between partitions; a partition in flight runs to
// completion.
func (im *Importer) Run(ctx context.Context, actorID string, records []lead.RawRecord) (*BatchResult, error) {
	if len(records) == 0 {
		return nil, ErrEmptyImport
	}

	// Fetch phase. Without the dedup baseline the run cannot classify safely.
	refs, err := im.store.FetchRefs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "importer: fetch existing leads")
	}
	index := lead.BuildPhoneIndex(refs)

	result := NewBatchResult()

	// Classify phase, in input order so the result arrays are deterministic.
	var inserts []insertCandidate
	var updates []updateCandidate
	for _, raw := range records {
		validated, err := im.validator.Validate(raw)
		if err != nil {
			result.Errors = append(result.Errors, RecordError{Error: err.Error(), Data: raw})
			continue
		}

		key := lead.NormalizePhone(validated.Phone)
		if ref, ok := index[key]; ok && key != "" {
			// Merge against the fetch-phase snapshot; the index is never
			// mutated mid-run, so duplicate phones within one input resolve
			// last-write-wins in input order.
			updates = append(updates, updateCandidate{
				payload: lead.ResolveMerge(ref, validated),
				raw:     raw,
			})
			continue
		}
		inserts = append(inserts, insertCandidate{lead: validated, raw: raw})
	}

	im.execUpdates(ctx, updates, result)
	im.execInserts(ctx, inserts, result)

	// Report phase. Audit failure must not fail the import.
	counts := result.Counts(len(records))
	if err := im.recorder.Record(context.WithoutCancel(ctx), audit.EventLeadBatchImport, actorID, counts); err != nil {
		zap.L().Warn("importer: audit event failed", zap.Error(err))
	}

	zap.L().Info("import complete",
		zap.Int("total", len(records)),
		zap.Int("inserted", len(result.Success)),
		zap.Int("updated", len(result.Updated)),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// execUpdates persists update candidates one at a time, in input order. A
// single failed update is recorded and does not block the rest.
func (im *Importer) execUpdates(ctx context.Context, updates []updateCandidate, result *BatchResult) {
	for i, u := range updates {
		if ctx.Err() != nil {
			im.recordCancelled(result, updates[i:], nil)
			return
		}
		if err := im.store.UpdateOne(ctx, u.payload.ID, u.payload); err != nil {
			result.Errors = append(result.Errors, RecordError{Error: err.Error(), Data: u.raw})
			continue
		}
		result.Updated = append(result.Updated, UpdateResult{
			ID:     u.payload.ID,
			Action: "updated",
			Phone:  u.payload.Phone,
		})
	}
}

// partitionOutcome holds one partition's results until they are merged into
// the shared accumulator in partition order.
type partitionOutcome struct {
	success []InsertResult
	errors  []RecordError
}

// execInserts partitions the insert stream and persists one bulk call per
// partition. Partitions may run concurrently up to the configured limit;
// outcomes land in indexed slots and merge in order, keeping output
// deterministic. A failed partition records one error per affected record and
// does not stop the others.
func (im *Importer) execInserts(ctx context.Context, inserts []insertCandidate, result *BatchResult) {
	partitions := Partition(inserts, im.batchSize)
	if len(partitions) == 0 {
		return
	}

	outcomes := make([]partitionOutcome, len(partitions))

	if im.parallel <= 1 {
		for i, part := range partitions {
			if ctx.Err() != nil {
				outcomes[i] = cancelledOutcome(part)
				continue
			}
			outcomes[i] = im.execPartition(ctx, part)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(im.parallel)
		for i, part := range partitions {
			g.Go(func() error {
				if gctx.Err() != nil {
					outcomes[i] = cancelledOutcome(part)
					return nil
				}
				outcomes[i] = im.execPartition(gctx, part)
				return nil
			})
		}
		// Partition failures are recorded per record, never returned.
		_ = g.Wait()
	}

	for _, o := range outcomes {
		result.Success = append(result.Success, o.success...)
		result.Errors = append(result.Errors, o.errors...)
	}
}

// execPartition runs one bulk insert. Partial partition success is not
// assumed: when the call fails, every record in the partition is recorded as
// failed.
func (im *Importer) execPartition(ctx context.Context, part []insertCandidate) partitionOutcome {
	leads := make([]lead.Lead, len(part))
	for i, c := range part {
		leads[i] = c.lead
	}

	inserted, err := im.store.InsertMany(ctx, leads)
	if err != nil {
		zap.L().Error("importer: insert partition failed",
			zap.Int("size", len(part)),
			zap.Error(err),
		)
		o := partitionOutcome{errors: make([]RecordError, 0, len(part))}
		for _, c := range part {
			o.errors = append(o.errors, RecordError{Error: err.Error(), Data: c.raw})
		}
		return o
	}

	o := partitionOutcome{success: make([]InsertResult, 0, len(inserted))}
	for _, in := range inserted {
		o.success = append(o.success, InsertResult{ID: in.ID, Email: in.Email})
	}
	return o
}

// recordCancelled accounts for candidates skipped after cancellation, so the
// caller's totals still add up.
func (im *Importer) recordCancelled(result *BatchResult, updates []updateCandidate, inserts []insertCandidate) {
	for _, u := range updates {
		result.Errors = append(result.Errors, RecordError{Error: "import cancelled", Data: u.raw})
	}
	for _, c := range inserts {
		result.Errors = append(result.Errors, RecordError{Error: "import cancelled", Data: c.raw})
	}
}

func cancelledOutcome(part []insertCandidate) partitionOutcome {
	o := partitionOutcome{errors: make([]RecordError, 0, len(part))}
	for _, c := range part {
		o.errors = append(o.errors, RecordError{Error: "import cancelled", Data: c.raw})
	}
	return o
}
