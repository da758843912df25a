package ledger

import (
	"context"

	"github.com/misterplus/btdex/internal/escrow"
)

// Cursor marks the most recent deployed instance already seen for one
// contract type. The zero cursor means nothing was seen yet.
type Cursor uint64

// Client is the query surface of a ledger node. All calls are bounded
// remote calls; the tracker treats a failure as a skipped cycle, never as
// data loss, since the ledger itself is the durable source of truth.
type Client interface {
	GetLatestBlock(ctx context.Context) (Block, error)
	GetUnconfirmedTransactions(ctx context.Context, account escrow.AccountID) ([]Transaction, error)
	// GetDeployedInstances returns instances of the given code hash newer
	// than the cursor, oldest first, along with the advanced cursor.
	// Re-querying with an unchanged cursor yields nothing.
	GetDeployedInstances(ctx context.Context, codeHashID uint64, since Cursor) ([]DeployedInstance, Cursor, error)
	GetInstance(ctx context.Context, address escrow.AccountID) (DeployedInstance, error)
	BroadcastTransaction(ctx context.Context, signedBytes []byte) (txID uint64, err error)
}
