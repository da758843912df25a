package ledger

import (
	"time"

	"github.com/misterplus/btdex/internal/escrow"
)

type Block struct {
	ID        uint64
	Height    int64
	Timestamp time.Time
}

// Transaction is one ledger transaction, confirmed or pending. Attachment
// carries the raw message payload; for contract method calls it starts with
// the 8-byte little-endian method hash.
type Transaction struct {
	ID         uint64
	Sender     escrow.AccountID
	Recipient  escrow.AccountID
	Amount     int64
	Attachment []byte
}

// DeployedInstance is the on-chain view of one escrow contract: its
// immutable creation record plus the current machine data segment.
type DeployedInstance struct {
	Address escrow.AccountID
	Creator escrow.AccountID
	Version int32

	MachineCode []byte
	// CreationData is the three-long creation payload:
	// fee account, arbitrator one, arbitrator two.
	CreationData [3]int64

	Balance        int64
	StateCode      int64
	Rate           int64
	Security       int64
	Amount         int64
	Nonce          int64
	Taker          escrow.AccountID
	PauseTimeoutAt time.Time
}

func (d DeployedInstance) FeeAccount() escrow.AccountID  { return escrow.AccountID(d.CreationData[0]) }
func (d DeployedInstance) Arbitrator1() escrow.AccountID { return escrow.AccountID(d.CreationData[1]) }
func (d DeployedInstance) Arbitrator2() escrow.AccountID { return escrow.AccountID(d.CreationData[2]) }
