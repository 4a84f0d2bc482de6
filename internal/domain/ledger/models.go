package ledger

import "paystream/internal/platform/address"

// Stream is one payroll relationship. Times are unix seconds, amounts are in
// the ledger's smallest unit.
type Stream struct {
	ID              uint64          `json:"id"`
	Employee        address.Address `json:"employee"`
	RatePerSecond   uint64          `json:"ratePerSecond"`
	StartTime       int64           `json:"startTime"`
	LastClaimTime   int64           `json:"lastClaimTime"`
	TotalDeposited  uint64          `json:"totalDeposited"`
	Active          bool            `json:"active"`
	IsEndless       bool            `json:"isEndless"`
	PausedAt        int64           `json:"pausedAt"`
	TotalBonusAdded uint64          `json:"totalBonusAdded"`
	BonusWithdrawn  uint64          `json:"bonusWithdrawn"`
}

// Cancelled reports the terminal state: neither streaming nor paused.
func (s Stream) Cancelled() bool {
	return !s.Active && s.PausedAt == 0
}

type TaxConfig struct {
	Vault       address.Address `json:"vault"`
	BasisPoints uint16          `json:"basisPoints"`
}

// Event is the observability record emitted for every state change.
type Event struct {
	Kind     EventKind       `json:"kind"`
	At       int64           `json:"at"`
	StreamID *uint64         `json:"streamId,omitempty"`
	Actor    address.Address `json:"actor,omitempty"`
	Account  address.Address `json:"account,omitempty"`
	Amount   uint64          `json:"amount,omitempty"`
	Net      uint64          `json:"net,omitempty"`
	Tax      uint64          `json:"tax,omitempty"`
	Rate     uint64          `json:"ratePerSecond,omitempty"`
	Endless  bool            `json:"isEndless,omitempty"`
	Bps      uint16          `json:"bps,omitempty"`
}

// Payout is one outgoing value transfer.
type Payout struct {
	StreamID  *uint64         `json:"streamId,omitempty"`
	Recipient address.Address `json:"recipient"`
	Amount    uint64          `json:"amount"`
	Kind      PayoutKind      `json:"kind"`
	At        int64           `json:"at"`
}

// Quote previews the split a withdrawal would make right now.
type Quote struct {
	Gross uint64 `json:"gross"`
	Tax   uint64 `json:"tax"`
	Net   uint64 `json:"net"`
	Base  uint64 `json:"base"`
	Bonus uint64 `json:"bonus"`
}

// Settlement describes a committed withdrawal or cancellation.
type Settlement struct {
	StreamID  uint64          `json:"streamId"`
	Employee  address.Address `json:"employee"`
	Gross     uint64          `json:"gross"`
	Net       uint64          `json:"net"`
	Tax       uint64          `json:"tax"`
	Remainder uint64          `json:"remainder,omitempty"`
}

// BatchEntry is one row of a batch stream creation.
type BatchEntry struct {
	Employee      address.Address `json:"employee"`
	RatePerSecond uint64          `json:"ratePerSecond"`
}

// Globals is the singleton part of the ledger state.
type Globals struct {
	Owner        address.Address   `json:"owner"`
	Deployer     address.Address   `json:"deployer"`
	HR           []address.Address `json:"hr"`
	Balance      uint64            `json:"treasuryBalance"`
	Reserved     uint64            `json:"totalReserved"`
	Tax          TaxConfig         `json:"tax"`
	YieldBps     uint16            `json:"simulatedYieldRate"`
	NextStreamID uint64            `json:"nextStreamId"`
}

// State is the entire durable state of a ledger.
type State struct {
	Globals
	Streams []Stream `json:"streams"`
}

// Changes is what one or more commands touched since the last drain.
type Changes struct {
	Globals Globals
	Streams []Stream
	Events  []Event
	Payouts []Payout
}

func (c Changes) Empty() bool {
	return len(c.Streams) == 0 && len(c.Events) == 0 && len(c.Payouts) == 0
}
