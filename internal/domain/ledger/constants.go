package ledger

// MaxBasisPoints is 100%.
const MaxBasisPoints = 10000

// SecondsPerMonth is the 30-day month used to turn monthly salaries into
// per-second rates.
const SecondsPerMonth = 30 * 24 * 60 * 60

type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type EventKind string

const (
	EventStreamCreated        EventKind = "StreamCreated"
	EventStreamPaused         EventKind = "StreamPaused"
	EventStreamResumed        EventKind = "StreamResumed"
	EventStreamCancelled      EventKind = "StreamCancelled"
	EventStreamBonusAdded     EventKind = "StreamBonusAdded"
	EventWithdrawn            EventKind = "Withdrawn"
	EventDeposited            EventKind = "Deposited"
	EventWithdrawnTreasury    EventKind = "WithdrawnTreasury"
	EventYieldDeposited       EventKind = "YieldDeposited"
	EventYieldRateUpdated     EventKind = "YieldRateUpdated"
	EventTaxConfigUpdated     EventKind = "TaxConfigUpdated"
	EventHRAdded              EventKind = "HRAdded"
	EventHRRemoved            EventKind = "HRRemoved"
	EventOwnershipTransferred EventKind = "OwnershipTransferred"
)

type PayoutKind string

const (
	PayoutNet      PayoutKind = "net"
	PayoutTax      PayoutKind = "tax"
	PayoutTreasury PayoutKind = "treasury"
)

// DepositPolicy decides who may fund the treasury.
type DepositPolicy string

const (
	DepositOpen   DepositPolicy = "open"
	DepositHROnly DepositPolicy = "hr"
)
