package spike

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Detection thresholds. Fixed constants of the design: a jump of more than
// 20 index points always flags, and crossing above 70 from a baseline below
// 55 flags even when the absolute jump is smaller.
var (
	jumpThreshold = decimal.NewFromInt(20)
	highRegime    = decimal.NewFromInt(70)
	lowRegime     = decimal.NewFromInt(55)
)

// Reason labels for a flagged transition.
const (
	ReasonLargeJump    = "LARGE_JUMP"
	ReasonRegimeChange = "REGIME_CHANGE"
)

// Result describes the outcome of evaluating one transition.
type Result struct {
	IsSpike bool
	Reason  string
	Change  decimal.Decimal
}

// Evaluate compares a new index value against the immediately preceding one.
// No smoothing, no multi-point trend: single-previous-value comparison,
// trading false negatives on slow ramps for simplicity.
func Evaluate(from, to decimal.Decimal) Result {
	change := to.Sub(from)

	if change.GreaterThan(jumpThreshold) {
		return Result{IsSpike: true, Reason: ReasonLargeJump, Change: change}
	}
	if to.GreaterThan(highRegime) && from.LessThan(lowRegime) {
		return Result{IsSpike: true, Reason: ReasonRegimeChange, Change: change}
	}

	return Result{Change: change}
}

// Note renders a short human-readable annotation for a flagged transition.
func (r Result) Note() string {
	if !r.IsSpike {
		return ""
	}
	return fmt.Sprintf("%s (%s)", r.Reason, r.Change.StringFixed(2))
}
