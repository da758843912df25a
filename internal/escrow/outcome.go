package escrow

type OutcomeKind int8

const (
	// OutcomeIgnored means the call did not pass its guards and had no
	// observable effect. Any attached value stays in the contract balance.
	OutcomeIgnored OutcomeKind = iota
	// OutcomeApplied means the call transitioned the machine; Transfers
	// lists the value movements it produced.
	OutcomeApplied
	// OutcomeRefunded means the call was rejected and the full attached
	// value was sent back to the caller. The timeout-induced pause on a
	// rejected take still sticks.
	OutcomeRefunded
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeApplied:
		return "applied"
	case OutcomeRefunded:
		return "refunded"
	default:
		return "unknown"
	}
}

// Transfer is a value movement out of the contract balance.
type Transfer struct {
	To     AccountID
	Amount int64
}

// Outcome is the total result of one inbound call. The machine has no error
// channel: every input resolves to exactly one Outcome.
type Outcome struct {
	Kind      OutcomeKind
	Transfers []Transfer
}

func ignored() Outcome {
	return Outcome{Kind: OutcomeIgnored}
}

func applied(transfers ...Transfer) Outcome {
	return Outcome{Kind: OutcomeApplied, Transfers: transfers}
}

func refunded(to AccountID, amount int64) Outcome {
	return Outcome{Kind: OutcomeRefunded, Transfers: []Transfer{{To: to, Amount: amount}}}
}
