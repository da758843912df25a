package httphandlers

import (
	"strconv"
	"time"

	"github.com/misterplus/btdex/internal/contract"
	"github.com/misterplus/btdex/internal/escrow"
)

// account ids are rendered as decimal strings so 64-bit values survive
// JSON consumers

type ContractResponse struct {
	Address        string    `json:"address"`
	Type           string    `json:"type"`
	Creator        string    `json:"creator"`
	FeeAccount     string    `json:"feeAccount"`
	Arbitrator1    string    `json:"arbitrator1"`
	Arbitrator2    string    `json:"arbitrator2"`
	Version        int32     `json:"version"`
	Trusted        bool      `json:"trusted"`
	Stage          string    `json:"stage"`
	StateKnown     bool      `json:"stateKnown"`
	CreatorDispute bool      `json:"creatorDispute"`
	TakerDispute   bool      `json:"takerDispute"`
	Rate           int64     `json:"rate"`
	Security       int64     `json:"security"`
	Amount         int64     `json:"amount"`
	Nonce          int64     `json:"nonce"`
	Balance        int64     `json:"balance"`
	Taker          string    `json:"taker,omitempty"`
	PauseTimeoutAt time.Time `json:"pauseTimeoutAt"`
	HasPending     bool      `json:"hasPending"`
	PendingTake    bool      `json:"pendingTake"`
}

type FreeContractsResponse struct {
	Loading       bool              `json:"loading"`
	Sell          *ContractResponse `json:"sell"`
	SellNoDeposit *ContractResponse `json:"sellNoDeposit"`
	Buy           *ContractResponse `json:"buy"`
}

type StatusResponse struct {
	Loading   bool                    `json:"loading"`
	Contracts int                     `json:"contracts"`
	Cycles    []contract.CycleSummary `json:"cycles"`
}

type ContractDataResponse struct {
	FeeAccount  string `json:"feeAccount"`
	Arbitrator1 string `json:"arbitrator1"`
	Arbitrator2 string `json:"arbitrator2"`
}

type BroadcastRequest struct {
	TransactionBytes string `json:"transactionBytes" binding:"required"`
}

type BroadcastResponse struct {
	Transaction string `json:"transaction"`
}

func mapContract(instance *contract.Instance) *ContractResponse {
	if instance == nil {
		return nil
	}
	s := instance.Snapshot()
	return &ContractResponse{
		Address:        formatAccount(s.Address),
		Type:           s.Type.String(),
		Creator:        formatAccount(s.Creator),
		FeeAccount:     formatAccount(s.FeeAccount),
		Arbitrator1:    formatAccount(s.Arbitrator1),
		Arbitrator2:    formatAccount(s.Arbitrator2),
		Version:        s.Version,
		Trusted:        s.Trusted,
		Stage:          s.Stage.String(),
		StateKnown:     s.StateKnown,
		CreatorDispute: s.CreatorDispute,
		TakerDispute:   s.TakerDispute,
		Rate:           s.Rate,
		Security:       s.Security,
		Amount:         s.Amount,
		Nonce:          s.Nonce,
		Balance:        s.Balance,
		Taker:          formatOptionalAccount(s.Taker),
		PauseTimeoutAt: s.PauseTimeoutAt,
		HasPending:     s.HasPending,
		PendingTake:    s.PendingTake,
	}
}

func formatAccount(id escrow.AccountID) string {
	return strconv.FormatUint(uint64(id), 10)
}

func formatOptionalAccount(id escrow.AccountID) string {
	if id == 0 {
		return ""
	}
	return formatAccount(id)
}
