package discount

import (
	"strings"

	"github.com/shopspring/decimal"
)

var maxPercent = decimal.NewFromInt(100)

// State is the client-side view of an applied discount code. It is never
// authoritative: the upstream confirms it when applied and again at checkout.
type State struct {
	Code    string          `json:"code,omitempty"`
	Percent decimal.Decimal `json:"percent"`
	Applied bool            `json:"applied"`
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func NewState(code string, percent decimal.Decimal) (State, error) {
	code = NormalizeCode(code)
	if code == "" {
		return State{}, ErrEmptyCode
	}
	if percent.IsNegative() || percent.GreaterThan(maxPercent) {
		return State{}, ErrInvalidPercent
	}
	return State{Code: code, Percent: percent, Applied: true}, nil
}

// EffectivePercent is zero unless a code is applied.
func (s State) EffectivePercent() decimal.Decimal {
	if !s.Applied {
		return decimal.Zero
	}
	return s.Percent
}
