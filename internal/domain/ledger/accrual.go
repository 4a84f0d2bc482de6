package ledger

import (
	"math"
	"math/bits"
)

// Accrual is the claimable amount of a stream at one instant, split into its
// time-based and bonus parts. EffectiveTime is the clamped clock the base part
// was computed against; settlement advances LastClaimTime to it.
type Accrual struct {
	Base          uint64
	Bonus         uint64
	EffectiveTime int64
}

func (a Accrual) Total() uint64 {
	return addSat(a.Base, a.Bonus)
}

// CapTime is the instant a finite stream exhausts TotalDeposited. The last
// partial second is never paid because the duration truncates. Endless
// streams return math.MaxInt64.
func CapTime(s Stream) int64 {
	if s.IsEndless {
		return math.MaxInt64
	}
	if s.RatePerSecond == 0 {
		return s.StartTime
	}
	duration := s.TotalDeposited / s.RatePerSecond
	if s.StartTime >= 0 && duration > uint64(math.MaxInt64-s.StartTime) {
		return math.MaxInt64
	}
	return s.StartTime + int64(duration)
}

// EffectiveTime is the clock accrual runs against: now while streaming, the
// pause instant while paused, and LastClaimTime once cancelled.
func EffectiveTime(s Stream, now int64) int64 {
	var t int64
	switch {
	case s.Active:
		t = now
	case s.PausedAt != 0:
		t = s.PausedAt
	default:
		t = s.LastClaimTime
	}
	if !s.IsEndless {
		if limit := CapTime(s); t > limit {
			t = limit
		}
	}
	return t
}

// ComputeAccrued returns what the stream has earned but not withdrawn at now.
func ComputeAccrued(s Stream, now int64) Accrual {
	eff := EffectiveTime(s, now)
	acc := Accrual{EffectiveTime: eff}
	if eff > s.LastClaimTime {
		acc.Base = mulSat(uint64(eff-s.LastClaimTime), s.RatePerSecond)
	}
	acc.Bonus = subSat(s.TotalBonusAdded, s.BonusWithdrawn)
	return acc
}

// StatusAt derives the display state. Completed is never stored.
func StatusAt(s Stream, now int64) Status {
	switch {
	case s.PausedAt != 0:
		return StatusPaused
	case !s.Active:
		return StatusCancelled
	case !s.IsEndless && now >= CapTime(s):
		return StatusCompleted
	default:
		return StatusActive
	}
}

// basePaid is the lifetime base payout of a stream. LastClaimTime and
// StartTime shift together on resume, so their distance counts paid seconds.
func basePaid(s Stream) uint64 {
	if s.LastClaimTime <= s.StartTime {
		return 0
	}
	return mulSat(uint64(s.LastClaimTime-s.StartTime), s.RatePerSecond)
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

func addSat(a, b uint64) uint64 {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return math.MaxUint64
	}
	return sum
}

func subSat(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

func addChecked(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, ErrOverflow
	}
	return sum, nil
}

// mulDiv computes a*b/d without intermediate overflow. d must be non-zero and
// the result fits when b <= d.
func mulDiv(a, b, d uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return math.MaxUint64
	}
	q, _ := bits.Div64(hi, lo, d)
	return q
}
