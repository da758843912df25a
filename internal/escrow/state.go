package escrow

// AccountID is a signed 64-bit ledger account identifier. Zero means unset.
type AccountID int64

type ContractType int8

const (
	TypeSell ContractType = iota
	TypeSellNoDeposit
	TypeBuy
)

func (t ContractType) String() string {
	switch t {
	case TypeSell:
		return "sell"
	case TypeSellNoDeposit:
		return "sell-no-deposit"
	case TypeBuy:
		return "buy"
	default:
		return "unknown"
	}
}

// Stage is the base lifecycle of an escrow instance. The underlying values
// match the on-chain state codes so ordering comparisons against the
// deployed machine stay exact.
type Stage int64

const (
	StageFinished        Stage = 0x00
	StageOpen            Stage = 0x01
	StagePaused          Stage = 0x02
	StageTaken           Stage = 0x10
	StageWaitingPayment  Stage = 0x20
	StagePaymentReported Stage = 0x40
)

// dispute flags occupy a separate bit range of the on-chain state word
const (
	codeDispute        int64 = 0x100
	codeCreatorDispute int64 = 0x200
	codeTakerDispute   int64 = 0x400

	stageMask int64 = 0xff
)

func (s Stage) String() string {
	switch s {
	case StageFinished:
		return "finished"
	case StageOpen:
		return "open"
	case StagePaused:
		return "paused"
	case StageTaken:
		return "taken"
	case StageWaitingPayment:
		return "waiting-payment"
	case StagePaymentReported:
		return "payment-reported"
	default:
		return "unknown"
	}
}

// EncodeState packs a lifecycle stage and the two dispute flags into the
// on-chain state word.
func EncodeState(stage Stage, creatorDispute, takerDispute bool) int64 {
	code := int64(stage)
	if creatorDispute {
		code += codeCreatorDispute
	}
	if takerDispute {
		code += codeTakerDispute
	}
	return code
}

// DecodeState unpacks an on-chain state word. ok is false when the base
// lifecycle code is not one of the known stages.
func DecodeState(code int64) (stage Stage, creatorDispute, takerDispute bool, ok bool) {
	creatorDispute = code&codeCreatorDispute != 0
	takerDispute = code&codeTakerDispute != 0

	stage = Stage(code & stageMask)
	switch stage {
	case StageFinished, StageOpen, StagePaused, StageTaken, StageWaitingPayment, StagePaymentReported:
		return stage, creatorDispute, takerDispute, true
	default:
		return stage, creatorDispute, takerDispute, false
	}
}
