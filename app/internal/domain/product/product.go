package product

import (
	"github.com/shopspring/decimal"

	domcart "example.com/mechstore/app/internal/domain/cart"
)

// PlanTerms is a resale offer as published in the catalog, before it is bound
// to a unit price.
type PlanTerms struct {
	ID               string
	Months           int
	ProfitPercentage decimal.Decimal
}

type Product struct {
	ID     string
	Name   string
	NameAr string
	Price  decimal.Decimal
	Image  string
	Plans  []PlanTerms
}

// ToItem builds a wallet-mode cart line for quantity units of the product.
func (p *Product) ToItem(quantity int64) (domcart.Item, error) {
	if quantity <= 0 {
		return domcart.Item{}, domcart.ErrInvalidQuantity
	}
	plans, err := p.ResalePlans()
	if err != nil {
		return domcart.Item{}, err
	}
	return domcart.Item{
		ProductID:    p.ID,
		Name:         p.Name,
		UnitPrice:    p.Price,
		Quantity:     quantity,
		Image:        p.Image,
		PurchaseMode: domcart.ModeWallet,
		ResalePlans:  plans,
	}, nil
}

func (p *Product) ResalePlans() ([]domcart.ResalePlan, error) {
	plans := make([]domcart.ResalePlan, 0, len(p.Plans))
	for _, t := range p.Plans {
		plan, err := domcart.NewResalePlan(t.ID, t.Months, t.ProfitPercentage, p.Price)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}
