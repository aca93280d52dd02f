package domain

// ReplayOutcome classifies the fate of one replayed adjustment.
type ReplayOutcome string

const (
	// OutcomeCommitted means the adjustment was applied and produced a
	// new transaction.
	OutcomeCommitted ReplayOutcome = "committed"
	// OutcomeDuplicate means the idempotency key had already been
	// committed; the original transaction is returned unchanged.
	OutcomeDuplicate ReplayOutcome = "duplicate"
	// OutcomeRejected means the adjustment failed validation or a
	// business rule and was not applied.
	OutcomeRejected ReplayOutcome = "rejected"
)

// ReplayBatch is a client's offline buffer, ordered as the client
// recorded it. Watermark is the highest per-key sequence the client had
// seen before going offline; the gateway uses it to bound the history
// returned for catch-up.
type ReplayBatch struct {
	ClientID    string
	Watermark   int64
	Adjustments []*Adjustment
}

// ReplayEntryResult reports one adjustment's fate, in the batch's input
// order. Tx is set for committed and duplicate outcomes; Reason holds a
// human-readable cause for rejected ones.
type ReplayEntryResult struct {
	Index   int
	Outcome ReplayOutcome
	Tx      *Transaction
	Reason  string
}

// ReplayResult is the gateway's response for a whole batch. Records and
// History carry, per touched key, the final server state and the
// committed transactions after the client's watermark, so the client can
// rebuild local state without a second round trip.
type ReplayResult struct {
	Entries []*ReplayEntryResult
	Records map[StockKey]*StockRecord
	History map[StockKey][]*Transaction
}

// Committed counts entries that produced a new transaction.
func (r *ReplayResult) Committed() int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == OutcomeCommitted {
			n++
		}
	}
	return n
}
