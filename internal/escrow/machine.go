package escrow

import "time"

const (
	// OneCoin is the number of base units (planck) in one whole coin.
	OneCoin int64 = 100_000_000

	// ActivationFee is charged by the ledger runtime on every method call
	// and counts towards the taker's required security deposit.
	ActivationFee int64 = 28 * OneCoin

	// feeDivisor yields the 0.25% protocol fee withheld from the taker
	feeDivisor int64 = 400
)

// Params are fixed at deployment and never change afterwards.
type Params struct {
	Type        ContractType
	Creator     AccountID
	FeeAccount  AccountID
	Arbitrator1 AccountID
	Arbitrator2 AccountID
}

// Call is one inbound transaction addressed to the contract. Sent is the
// attached value net of the activation fee.
type Call struct {
	Sender AccountID
	Sent   int64
	Now    time.Time
}

// Machine is the escrow contract transition logic executed under ledger
// consensus. It is deterministic, never fails, and produces no side effects
// beyond the transfers declared in the returned Outcome. The same logic is
// replayed off-chain by the tracker to mirror deployed instances.
type Machine struct {
	params Params

	stage          Stage
	creatorDispute bool
	takerDispute   bool

	rate           int64
	security       int64
	amount         int64
	nonce          int64
	pauseTimeoutAt time.Time
	taker          AccountID

	balance int64
}

// NewMachine returns a freshly deployed instance. A new deployment starts
// finished: the creator configures it with Update before it can be taken.
func NewMachine(params Params) *Machine {
	return &Machine{params: params}
}

func (m *Machine) Params() Params            { return m.params }
func (m *Machine) Stage() Stage              { return m.stage }
func (m *Machine) CreatorDispute() bool      { return m.creatorDispute }
func (m *Machine) TakerDispute() bool        { return m.takerDispute }
func (m *Machine) Disputed() bool            { return m.creatorDispute || m.takerDispute }
func (m *Machine) Rate() int64               { return m.rate }
func (m *Machine) Security() int64           { return m.security }
func (m *Machine) Amount() int64             { return m.amount }
func (m *Machine) Nonce() int64              { return m.nonce }
func (m *Machine) PauseTimeoutAt() time.Time { return m.pauseTimeoutAt }
func (m *Machine) Taker() AccountID          { return m.taker }
func (m *Machine) Balance() int64            { return m.balance }

// StateCode returns the on-chain encoding of the current state word.
func (m *Machine) StateCode() int64 {
	return EncodeState(m.stage, m.creatorDispute, m.takerDispute)
}

// Update reconfigures the offer. Creator only, and only before the offer is
// taken. Always pauses first and bumps the nonce, invalidating in-flight
// takes against the previous terms. security == 0 withdraws the offer and
// returns the whole balance to the creator; otherwise a positive
// pauseMinutes reopens it and the amount on offer becomes the remaining
// balance minus the security deposit.
func (m *Machine) Update(call Call, rate, security, pauseMinutes int64) Outcome {
	m.receive(call)

	if call.Sender != m.params.Creator || !m.beforeTaken() {
		return ignored()
	}

	m.stage = StagePaused
	m.rate = rate
	m.security = security
	m.nonce++

	if security == 0 {
		m.amount = 0
		return applied(m.drain(m.params.Creator))
	}

	if pauseMinutes > 0 {
		m.stage = StageOpen
	}
	m.pauseTimeoutAt = call.Now.Add(time.Duration(pauseMinutes) * time.Minute)

	// what is on offer is the whole balance minus the creator's collateral
	m.amount = m.balance - security

	return applied()
}

// Take accepts an open offer. The caller must repeat the exact current
// terms, and the attached value plus the activation fee must cover the
// taker's required deposit. Any mismatch refunds the attached value in
// full; an elapsed pause timeout forces the offer paused before the guards
// run and that transition sticks even when the take is refused.
func (m *Machine) Take(call Call, rate, security, amount int64) Outcome {
	m.receive(call)

	if !call.Now.Before(m.pauseTimeoutAt) {
		m.stage = StagePaused
	}

	if m.stage != StageOpen || m.rate != rate || m.security != security || m.amount != amount ||
		call.Sent+ActivationFee < m.takerDeposit() {
		return m.refund(call)
	}

	m.stage = StageWaitingPayment
	m.taker = call.Sender
	return applied()
}

// ReportComplete is the creator confirming the off-chain payment arrived.
// Returns the security deposit to the creator, pays out the taker minus the
// 0.25% protocol fee, and sweeps the remaining balance to the fee account.
func (m *Machine) ReportComplete(call Call) Outcome {
	m.receive(call)

	if call.Sender != m.params.Creator || !m.pastWaitingPayment() {
		return ignored()
	}

	creatorPayout, takerPayout := m.completionPayouts()
	transfers := []Transfer{
		m.send(m.params.Creator, creatorPayout),
		m.send(m.taker, takerPayout),
	}

	m.taker = 0
	m.stage = StageFinished
	m.creatorDispute = false
	m.takerDispute = false

	transfers = append(transfers, m.drain(m.params.FeeAccount))
	return applied(transfers...)
}

// OpenDispute raises the caller's dispute flag. Each party can raise it at
// most once; a repeat call is a no-op rather than an error.
func (m *Machine) OpenDispute(call Call) Outcome {
	m.receive(call)

	if !m.pastWaitingPayment() {
		return ignored()
	}

	if call.Sender == m.params.Creator && !m.creatorDispute {
		m.creatorDispute = true
		return applied()
	}
	if call.Sender == m.taker && !m.takerDispute {
		m.takerDispute = true
		return applied()
	}
	return ignored()
}

// CloseDispute settles a disputed trade. Arbitrators only. The two payout
// amounts are taken at the arbitrator's word, the taker is cleared and the
// remaining balance is swept to the fee account.
func (m *Machine) CloseDispute(call Call, amountToCreator, amountToTaker int64) Outcome {
	m.receive(call)

	if !m.Disputed() {
		return ignored()
	}
	if call.Sender != m.params.Arbitrator1 && call.Sender != m.params.Arbitrator2 {
		return ignored()
	}

	transfers := []Transfer{
		m.send(m.params.Creator, amountToCreator),
		m.send(m.taker, amountToTaker),
	}

	m.taker = 0
	m.stage = StageFinished
	m.creatorDispute = false
	m.takerDispute = false

	transfers = append(transfers, m.drain(m.params.FeeAccount))
	return applied(transfers...)
}

// UnknownCall handles any transaction that does not match an exposed
// method. The attached value is always refunded in full.
func (m *Machine) UnknownCall(call Call) Outcome {
	m.receive(call)
	return m.refund(call)
}

// beforeTaken reports whether the offer can still be reconfigured
func (m *Machine) beforeTaken() bool {
	return m.stage < StageTaken && !m.Disputed()
}

// pastWaitingPayment reports whether a trade is in progress, disputed or not
func (m *Machine) pastWaitingPayment() bool {
	return m.stage >= StageWaitingPayment || m.Disputed()
}

// takerDeposit is the collateral the taker must cover when taking the offer
func (m *Machine) takerDeposit() int64 {
	switch m.params.Type {
	case TypeSellNoDeposit:
		return 0
	case TypeBuy:
		// the taker delivers the amount being bought on top of collateral
		return m.amount + m.security
	default:
		return m.security
	}
}

func (m *Machine) completionPayouts() (toCreator, toTaker int64) {
	if m.params.Type == TypeBuy {
		// the creator is the buyer: it receives the amount it paid for
		// along with its own collateral, the taker gets the rest of its
		// deposit back minus the protocol fee
		return m.amount + m.security, m.security - m.amount/feeDivisor
	}
	return m.security, m.amount + m.security - m.amount/feeDivisor
}

func (m *Machine) receive(call Call) {
	if call.Sent > 0 {
		m.balance += call.Sent
	}
}

func (m *Machine) refund(call Call) Outcome {
	return refunded(call.Sender, m.withdraw(call.Sent))
}

// send moves amount out of the balance, clamped the way the ledger runtime
// clamps payouts to the funds actually held
func (m *Machine) send(to AccountID, amount int64) Transfer {
	return Transfer{To: to, Amount: m.withdraw(amount)}
}

func (m *Machine) drain(to AccountID) Transfer {
	return m.send(to, m.balance)
}

func (m *Machine) withdraw(amount int64) int64 {
	if amount < 0 {
		amount = 0
	}
	if amount > m.balance {
		amount = m.balance
	}
	m.balance -= amount
	return amount
}
