package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	productuc "example.com/mechstore/app/internal/usecase/product"
)

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	offer, err := a.productSvc.GetOffer(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		a.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.mapOffer(offer))
}

func (a *API) mapOffer(o *productuc.Offer) map[string]any {
	plans := make([]map[string]any, 0, len(o.Plans))
	for _, p := range o.Plans {
		plans = append(plans, map[string]any{
			"id":                p.ID,
			"months":            p.Months,
			"profit_percentage": p.ProfitPercentage.String(),
			"expected_return":   a.money(p.ExpectedReturn),
			"profit_amount":     a.money(p.ProfitAmount),
		})
	}
	return map[string]any{
		"id":           o.Product.ID,
		"name":         o.Product.Name,
		"name_ar":      o.Product.NameAr,
		"price":        a.money(o.Product.Price),
		"image":        o.Product.Image,
		"resale_plans": plans,
	}
}
