package checkout

import (
	"strings"

	"github.com/shopspring/decimal"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
)

type Line struct {
	ProductID    string
	Quantity     int64
	PurchaseType domcart.PurchaseMode
	ResalePlanID *string
	CompanyID    string
}

type Shipping struct {
	Phone       string
	Address     string
	ExtraPhones []string
}

type ShippingInput struct {
	Phone       string
	Address     string
	ExtraPhones []string
}

// Payload is what the payment initiation endpoint receives.
type Payload struct {
	Lines           []Line
	DiscountPercent decimal.Decimal
	DiscountCode    string
	Shipping        *Shipping
}

type Result struct {
	PaymentURL string
}

// BuildPayload validates the session and projects it into a Payload. Lines
// use effective mode and plan, so products without plans go out as wallet
// even when the session mode is resale.
func BuildPayload(items []domcart.Item, sel domcart.Selection, disc domdiscount.State, ship ShippingInput) (*Payload, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines := make([]Line, 0, len(items))
	anyWallet := false
	for _, it := range items {
		company := it.CompanyID
		if company == "" {
			company = sel.CompanyID
		}
		if strings.TrimSpace(company) == "" {
			return nil, ErrDeliveryPartnerRequired
		}

		line := Line{
			ProductID:    it.ProductID,
			Quantity:     it.Quantity,
			PurchaseType: domcart.EffectiveMode(it),
			CompanyID:    company,
		}
		if plan, ok := domcart.EffectivePlan(it); ok {
			id := plan.ID
			line.ResalePlanID = &id
		}
		if line.PurchaseType == domcart.ModeWallet {
			anyWallet = true
		}
		lines = append(lines, line)
	}

	phone := strings.TrimSpace(ship.Phone)
	address := strings.TrimSpace(ship.Address)
	if sel.PurchaseMode == domcart.ModeWallet && (phone == "" || address == "") {
		return nil, ErrShippingInfoRequired
	}

	payload := &Payload{
		Lines:           lines,
		DiscountPercent: disc.EffectivePercent(),
	}
	if disc.Applied {
		payload.DiscountCode = disc.Code
	}
	if anyWallet && (phone != "" || address != "") {
		payload.Shipping = &Shipping{
			Phone:       phone,
			Address:     address,
			ExtraPhones: nonBlank(ship.ExtraPhones),
		}
	}
	return payload, nil
}

func nonBlank(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
