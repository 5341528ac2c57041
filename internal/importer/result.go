package importer

import "github.com/favalepink/traincrm/internal/lead"

// InsertResult identifies one successfully inserted lead.
type InsertResult struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// UpdateResult identifies one successfully merged lead.
type UpdateResult struct {
	ID     int64  `json:"id"`
	Action string `json:"action"`
	Phone  string `json:"phone"`
}

// RecordError pairs a failure reason with the raw record that caused it, so
// the caller can surface exactly which rows were rejected.
type RecordError struct {
	Error string         `json:"error"`
	Data  lead.RawRecord `json:"data"`
}

// BatchResult is the accumulated accounting of one import run. It grows
// additively: a failure in one record never removes results already recorded
// for other records.
type BatchResult struct {
	Success []InsertResult `json:"success"`
	Updated []UpdateResult `json:"updated"`
	Errors  []RecordError  `json:"errors"`
}

// NewBatchResult returns an empty result whose slices marshal as [] rather
// than null.
func NewBatchResult() *BatchResult {
	return &BatchResult{
		Success: []InsertResult{},
		Updated: []UpdateResult{},
		Errors:  []RecordError{},
	}
}

// Counts summarizes the result for the audit event payload.
func (r *BatchResult) Counts(total int) map[string]any {
	return map[string]any{
		"totalCount":   total,
		"successCount": len(r.Success),
		"updatedCount": len(r.Updated),
		"errorCount":   len(r.Errors),
	}
}
