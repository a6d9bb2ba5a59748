package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domcheckout "example.com/mechstore/app/internal/domain/checkout"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
	"example.com/mechstore/app/internal/domain/pricing"
	domproduct "example.com/mechstore/app/internal/domain/product"
	"example.com/mechstore/app/internal/infra/storefront"
	authuc "example.com/mechstore/app/internal/usecase/auth"
	cartuc "example.com/mechstore/app/internal/usecase/cart"
	checkoutuc "example.com/mechstore/app/internal/usecase/checkout"
	productuc "example.com/mechstore/app/internal/usecase/product"
)

const defaultPriceDecimals = 2

type API struct {
	authSvc       *authuc.Service
	cartSvc       *cartuc.Service
	checkoutSvc   *checkoutuc.Service
	productSvc    *productuc.Service
	logger        *zap.Logger
	validator     *validator.Validate
	priceDecimals int32
}

type Dependencies struct {
	AuthService     *authuc.Service
	CartService     *cartuc.Service
	CheckoutService *checkoutuc.Service
	ProductService  *productuc.Service
	Logger          *zap.Logger
	// PriceDecimals is the rounding applied to money in responses.
	PriceDecimals int32
}

func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	decimals := deps.PriceDecimals
	if decimals < 0 {
		decimals = defaultPriceDecimals
	}
	return &API{
		authSvc:       deps.AuthService,
		cartSvc:       deps.CartService,
		checkoutSvc:   deps.CheckoutService,
		productSvc:    deps.ProductService,
		logger:        logger,
		validator:     validator.New(),
		priceDecimals: decimals,
	}
}

func (a *API) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(a.requestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.AllowContentType("application/json", "text/plain"))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", a.handleCreateSession)
		r.Get("/products/{productID}", a.handleGetProduct)

		r.Group(func(sr chi.Router) {
			sr.Use(a.sessionMiddleware)

			sr.Route("/cart", func(cr chi.Router) {
				cr.Get("/", a.handleGetCart)
				cr.Delete("/", a.handleClearCart)

				cr.Post("/items", a.handleAddCartItem)
				cr.Put("/items/{productID}", a.handleSetQuantity)
				cr.Post("/items/{productID}/increase", a.handleIncrease)
				cr.Post("/items/{productID}/decrease", a.handleDecrease)
				cr.Delete("/items/{productID}", a.handleRemoveCartItem)
				cr.Patch("/items/{productID}/options", a.handleSetItemOptions)

				cr.Put("/selection", a.handleSetSelection)
				cr.Post("/discount", a.handleApplyDiscount)
				cr.Delete("/discount", a.handleClearDiscount)

				cr.Group(func(ar chi.Router) {
					ar.Use(a.requireAuth)
					ar.Post("/merge", a.handleMerge)
					ar.Post("/refresh", a.handleRefresh)
				})
			})

			sr.With(a.requireAuth).Post("/checkout", a.handleCheckout)
		})
	})

	return r
}

func (a *API) decodeAndValidate(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return err
	}
	return a.validator.Struct(dst)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func respondError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (a *API) mapView(v *cartuc.View) map[string]any {
	items := make([]map[string]any, 0, len(v.Items))
	for _, it := range v.Items {
		items = append(items, a.mapItem(it))
	}
	sum := v.Summary.Rounded(a.priceDecimals)
	return map[string]any{
		"session_id": v.SessionID,
		"items":      items,
		"selection": map[string]any{
			"purchase_mode": v.Selection.PurchaseMode,
			"company_id":    v.Selection.CompanyID,
		},
		"discount": map[string]any{
			"code":    v.Discount.Code,
			"percent": v.Discount.Percent.String(),
			"applied": v.Discount.Applied,
		},
		"summary": map[string]any{
			"subtotal":        a.money(sum.Subtotal),
			"discount_amount": a.money(sum.DiscountAmount),
			"expected_return": a.money(sum.ExpectedReturn),
			"expected_profit": a.money(sum.ExpectedProfit),
			"final_total":     a.money(sum.FinalTotal),
		},
		"sync_state": v.SyncState,
		"loading":    v.Loading,
		"revision":   v.Revision,
	}
}

func (a *API) mapItem(it domcart.Item) map[string]any {
	plans := make([]map[string]any, 0, len(it.ResalePlans))
	for _, p := range it.ResalePlans {
		plans = append(plans, map[string]any{
			"id":                p.ID,
			"months":            p.Months,
			"profit_percentage": p.ProfitPercentage.String(),
			"expected_return":   a.money(p.ExpectedReturn),
			"profit_amount":     a.money(p.ProfitAmount),
		})
	}
	out := map[string]any{
		"product_id":     it.ProductID,
		"name":           it.Name,
		"image":          it.Image,
		"unit_price":     a.money(it.UnitPrice),
		"quantity":       it.Quantity,
		"line_total":     a.money(pricing.LineTotal(it)),
		"purchase_mode":  it.PurchaseMode,
		"effective_mode": domcart.EffectiveMode(it),
		"company_id":     it.CompanyID,
		"resale_plans":   plans,
	}
	if plan, ok := domcart.EffectivePlan(it); ok {
		out["selected_plan_id"] = plan.ID
	}
	return out
}

func (a *API) money(d decimal.Decimal) string {
	return d.StringFixed(a.priceDecimals)
}

func mapReport(r cartuc.Report) []map[string]any {
	out := make([]map[string]any, 0, len(r.Items))
	for _, res := range r.Items {
		entry := map[string]any{
			"product_id": res.ProductID,
			"outcome":    res.Outcome,
			"retryable":  res.Retryable,
		}
		if res.Err != nil {
			entry["error"] = res.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

func statusFor(err error) int {
	var shortfall *domcheckout.StockShortfallError
	var apiErr *storefront.APIError
	switch {
	case errors.Is(err, domcart.ErrInvalidQuantity),
		errors.Is(err, domcart.ErrInvalidPrice),
		errors.Is(err, domcart.ErrInvalidProductID),
		errors.Is(err, domcart.ErrInvalidPurchaseMode),
		errors.Is(err, domcart.ErrInvalidResalePlan),
		errors.Is(err, domdiscount.ErrEmptyCode),
		errors.Is(err, domdiscount.ErrInvalidCode),
		errors.Is(err, domdiscount.ErrInvalidPercent),
		errors.Is(err, domcheckout.ErrEmptyCart),
		errors.Is(err, domcheckout.ErrDeliveryPartnerRequired),
		errors.Is(err, domcheckout.ErrShippingInfoRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domcart.ErrItemNotFound),
		errors.Is(err, domcart.ErrSessionNotFound),
		errors.Is(err, domproduct.ErrProductNotFound):
		return http.StatusNotFound
	case errors.As(err, &shortfall),
		errors.Is(err, domcheckout.ErrCheckoutInProgress),
		errors.Is(err, domcart.ErrNotSynced),
		errors.Is(err, cartuc.ErrAlreadySynced),
		errors.Is(err, cartuc.ErrMergeInProgress):
		return http.StatusConflict
	case errors.Is(err, authuc.ErrUnauthorized),
		errors.Is(err, cartuc.ErrAuthenticationRequired),
		errors.Is(err, domcheckout.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, storefront.ErrTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr),
		errors.Is(err, domcheckout.ErrPaymentInitiationFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	var shortfall *domcheckout.StockShortfallError
	if errors.As(err, &shortfall) {
		writeJSON(w, status, errorResponse{
			Error: err.Error(),
			Details: map[string]int64{
				"available": shortfall.Available,
				"requested": shortfall.Requested,
			},
		})
		return
	}
	respondError(w, status, err)
}
