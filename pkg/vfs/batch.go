package vfs

// Outcome buckets a batch result.
type Outcome int

// Outcomes.
const (
	OutcomeOK Outcome = iota
	OutcomePartial
	OutcomeFailed
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ItemResult is the result for one item of a batch.
type ItemResult struct {
	ItemID string
	Err    error
}

// BatchResult holds one result per requested item, in request order.
type BatchResult struct {
	Results []ItemResult
}

// NewBatchResult creates a result with one successful slot per id.
func NewBatchResult(itemIDs []string) BatchResult {
	results := make([]ItemResult, len(itemIDs))
	for i, id := range itemIDs {
		results[i] = ItemResult{ItemID: id}
	}

	return BatchResult{Results: results}
}

// Failures maps failed item ids to their errors.
func (b BatchResult) Failures() map[string]error {
	failures := make(map[string]error)

	for _, result := range b.Results {
		if result.Err != nil {
			failures[result.ItemID] = result.Err
		}
	}

	return failures
}

// Outcome returns OK when nothing failed, Failed when everything failed and Partial otherwise.
// An empty batch is OK.
func (b BatchResult) Outcome() Outcome {
	failed := 0

	for _, result := range b.Results {
		if result.Err != nil {
			failed++
		}
	}

	switch {
	case failed == 0:
		return OutcomeOK
	case failed == len(b.Results):
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Succeeded returns the ids that completed without error, in request order.
func (b BatchResult) Succeeded() []string {
	var ids []string

	for _, result := range b.Results {
		if result.Err == nil {
			ids = append(ids, result.ItemID)
		}
	}

	return ids
}
