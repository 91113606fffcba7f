package spike

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestEvaluateBoundaries(t *testing.T) {
	cases := []struct {
		name   string
		from   int64
		to     int64
		spike  bool
		reason string
	}{
		// change of exactly 20 is not a spike, and 70 is not above the regime line
		{name: "exact boundary", from: 50, to: 70, spike: false},
		{name: "just over jump threshold", from: 50, to: 71, spike: true, reason: ReasonLargeJump},
		{name: "regime crossing under jump threshold", from: 54, to: 71, spike: true, reason: ReasonRegimeChange},
		{name: "modest rise", from: 60, to: 65, spike: false},
		{name: "high baseline blocks regime clause", from: 55, to: 71, spike: false},
		{name: "drop never spikes", from: 90, to: 10, spike: false},
		{name: "jump from zero", from: 0, to: 21, spike: true, reason: ReasonLargeJump},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := Evaluate(d(tc.from), d(tc.to))
			assert.Equal(t, tc.spike, res.IsSpike)
			assert.Equal(t, tc.reason, res.Reason)
			assert.True(t, res.Change.Equal(d(tc.to-tc.from)))
		})
	}
}

func TestNote(t *testing.T) {
	res := Evaluate(d(60), d(65))
	assert.Empty(t, res.Note())

	res = Evaluate(d(40), d(65).Add(decimal.NewFromFloat(0.5)))
	assert.True(t, res.IsSpike)
	assert.Equal(t, "LARGE_JUMP (25.50)", res.Note())
}
