package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

type PurchaseMode string

const (
	ModeWallet PurchaseMode = "wallet"
	ModeResale PurchaseMode = "resale"
)

func (m PurchaseMode) IsValid() bool {
	switch m {
	case ModeWallet, ModeResale:
		return true
	default:
		return false
	}
}

func ParsePurchaseMode(s string) (PurchaseMode, error) {
	m := PurchaseMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", ErrInvalidPurchaseMode
	}
	return m, nil
}

var hundred = decimal.NewFromInt(100)

// ResalePlan is a (duration, profit) offer bound to the unit price of the
// product it was fetched for. Values are fixed at construction.
type ResalePlan struct {
	ID               string          `json:"id"`
	Months           int             `json:"months"`
	ProfitPercentage decimal.Decimal `json:"profit_percentage"`
	ExpectedReturn   decimal.Decimal `json:"expected_return"`
	ProfitAmount     decimal.Decimal `json:"profit_amount"`
}

func NewResalePlan(id string, months int, profitPercentage, unitPrice decimal.Decimal) (ResalePlan, error) {
	if strings.TrimSpace(id) == "" || months <= 0 || profitPercentage.IsNegative() {
		return ResalePlan{}, ErrInvalidResalePlan
	}
	expected := unitPrice.Mul(hundred.Add(profitPercentage)).Div(hundred)
	return ResalePlan{
		ID:               id,
		Months:           months,
		ProfitPercentage: profitPercentage,
		ExpectedReturn:   expected,
		ProfitAmount:     expected.Sub(unitPrice),
	}, nil
}

type Item struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int64           `json:"quantity"`
	Image          string          `json:"image,omitempty"`
	PurchaseMode   PurchaseMode    `json:"purchase_mode"`
	ResalePlans    []ResalePlan    `json:"resale_plans"`
	SelectedPlanID string          `json:"selected_plan_id,omitempty"`
	CompanyID      string          `json:"company_id,omitempty"`
}

func (i Item) HasResale() bool {
	return len(i.ResalePlans) > 0
}

func (i Item) Plan(id string) (ResalePlan, bool) {
	for _, p := range i.ResalePlans {
		if p.ID == id {
			return p, true
		}
	}
	return ResalePlan{}, false
}

func (i Item) clone() Item {
	out := i
	if i.ResalePlans != nil {
		out.ResalePlans = make([]ResalePlan, len(i.ResalePlans))
		copy(out.ResalePlans, i.ResalePlans)
	}
	return out
}

func (i Item) validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return ErrInvalidProductID
	}
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if !i.UnitPrice.IsPositive() {
		return ErrInvalidPrice
	}
	if !i.PurchaseMode.IsValid() {
		return ErrInvalidPurchaseMode
	}
	if i.SelectedPlanID != "" {
		if _, ok := i.Plan(i.SelectedPlanID); !ok {
			return ErrInvalidResalePlan
		}
	}
	return nil
}

// Options carries the optional per-item fields the upstream cart accepts in a
// single partial update. Nil fields are left untouched upstream.
type Options struct {
	PurchaseType *PurchaseMode
	ResalePlanID *string
	CompanyID    *string
}

func (o Options) IsEmpty() bool {
	return o.PurchaseType == nil && o.ResalePlanID == nil && o.CompanyID == nil
}

// OptionsFor returns the item's non-default options, or false when the item
// resolves to the defaults (wallet, no plan, no company).
func OptionsFor(it Item) (Options, bool) {
	var opts Options
	if plan, ok := EffectivePlan(it); ok {
		mode := ModeResale
		id := plan.ID
		opts.PurchaseType = &mode
		opts.ResalePlanID = &id
	}
	if it.CompanyID != "" {
		company := it.CompanyID
		opts.CompanyID = &company
	}
	return opts, !opts.IsEmpty()
}
