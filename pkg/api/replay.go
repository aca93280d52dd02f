package api

import "github.com/rl1809/stock-sync/internal/core/domain"

// ReplayRequest is a client's offline buffer, in the order the client
// recorded it. LastKnownServerSequence is the highest per-key sequence
// the client had seen before going offline.
type ReplayRequest struct {
	ClientID                string              `json:"client_id"`
	LastKnownServerSequence int64               `json:"last_known_server_sequence"`
	Adjustments             []AdjustmentRequest `json:"adjustments"`
}

func (r *ReplayRequest) ToDomain(userID string) (*domain.ReplayBatch, error) {
	batch := &domain.ReplayBatch{
		ClientID:  r.ClientID,
		Watermark: r.LastKnownServerSequence,
	}
	for i := range r.Adjustments {
		adj, err := r.Adjustments[i].ToDomain(userID)
		if err != nil {
			return nil, err
		}
		batch.Adjustments = append(batch.Adjustments, adj)
	}
	return batch, nil
}

// ReplayEntry reports one adjustment's fate, in the batch's input order.
type ReplayEntry struct {
	Index       int          `json:"index"`
	Outcome     string       `json:"outcome"`
	Reason      string       `json:"reason,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// ReplayKeyState carries the post-replay server state for one key: the
// final record plus the ledger entries past the client's watermark.
type ReplayKeyState struct {
	ItemID     string         `json:"item_id"`
	LocationID string         `json:"location_id"`
	Stock      *Stock         `json:"stock,omitempty"`
	History    []*Transaction `json:"history,omitempty"`
}

type ReplayResponse struct {
	Entries []ReplayEntry    `json:"entries"`
	Keys    []ReplayKeyState `json:"keys"`
}

func ReplayResponseFromDomain(res *domain.ReplayResult) *ReplayResponse {
	out := &ReplayResponse{}
	for _, e := range res.Entries {
		entry := ReplayEntry{
			Index:   e.Index,
			Outcome: string(e.Outcome),
			Reason:  e.Reason,
		}
		if e.Tx != nil {
			entry.Transaction = TransactionFromDomain(e.Tx)
		}
		out.Entries = append(out.Entries, entry)
	}
	for key, rec := range res.Records {
		state := ReplayKeyState{
			ItemID:     key.ItemID,
			LocationID: key.LocationID,
			Stock:      StockFromDomain(rec),
		}
		for _, t := range res.History[key] {
			state.History = append(state.History, TransactionFromDomain(t))
		}
		out.Keys = append(out.Keys, state)
	}
	return out
}
