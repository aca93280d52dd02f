package port

import "github.com/rl1809/stock-sync/internal/core/domain"

// Publisher receives committed state fan-out. Implementations must return
// immediately: a slow or full subscriber is the implementation's problem,
// never the committer's.
type Publisher interface {
	// PublishCommit fans a committed transaction and its resulting record
	// out to subscribers
	PublishCommit(tx *domain.Transaction, rec *domain.StockRecord)

	// PublishAlert fans a low stock alert out to subscribers
	PublishAlert(alert *domain.LowStockAlert)
}
