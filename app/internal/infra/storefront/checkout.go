package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	domcheckout "example.com/mechstore/app/internal/domain/checkout"
	discountuc "example.com/mechstore/app/internal/usecase/discount"
)

type validateDiscountRequest struct {
	Code string `json:"code"`
}

type validateDiscountResponse struct {
	Valid           bool             `json:"valid"`
	DiscountPercent *decimal.Decimal `json:"discountPercent"`
}

func (c *Client) ValidateDiscount(ctx context.Context, code string) (*discountuc.Validation, error) {
	var resp validateDiscountResponse
	err := c.do(ctx, http.MethodPost, "/discount-codes/validate", validateDiscountRequest{Code: code}, &resp)
	if isStatus(err, http.StatusNotFound) || isStatus(err, http.StatusBadRequest) {
		return &discountuc.Validation{Valid: false}, nil
	}
	if err != nil {
		return nil, err
	}
	out := &discountuc.Validation{Valid: resp.Valid}
	if resp.DiscountPercent != nil {
		out.Percent = *resp.DiscountPercent
	}
	return out, nil
}

type paymentLineDTO struct {
	ProductID    string  `json:"productId"`
	Quantity     int64   `json:"quantity"`
	PurchaseType string  `json:"purchaseType"`
	ResalePlanID *string `json:"resalePlanId"`
	CompanyID    string  `json:"companyId"`
}

type shippingDTO struct {
	Phone       string   `json:"phone"`
	Address     string   `json:"address"`
	ExtraPhones []string `json:"extraPhones,omitempty"`
}

type paymentRequest struct {
	Items           []paymentLineDTO `json:"items"`
	DiscountPercent json.Number      `json:"discountPercent"`
	DiscountCode    string           `json:"discountCode,omitempty"`
	Shipping        *shippingDTO     `json:"shipping,omitempty"`
}

type paymentResponse struct {
	PaymentURL string `json:"paymentUrl"`
}

func newPaymentRequest(p *domcheckout.Payload) paymentRequest {
	req := paymentRequest{
		Items:           make([]paymentLineDTO, 0, len(p.Lines)),
		DiscountPercent: json.Number(p.DiscountPercent.String()),
		DiscountCode:    p.DiscountCode,
	}
	for _, l := range p.Lines {
		req.Items = append(req.Items, paymentLineDTO{
			ProductID:    l.ProductID,
			Quantity:     l.Quantity,
			PurchaseType: string(l.PurchaseType),
			ResalePlanID: l.ResalePlanID,
			CompanyID:    l.CompanyID,
		})
	}
	if p.Shipping != nil {
		req.Shipping = &shippingDTO{
			Phone:       p.Shipping.Phone,
			Address:     p.Shipping.Address,
			ExtraPhones: p.Shipping.ExtraPhones,
		}
	}
	return req
}

// InitiatePayment submits the checkout payload. A stock conflict answer is
// returned as *checkout.StockShortfallError.
func (c *Client) InitiatePayment(ctx context.Context, p *domcheckout.Payload) (*domcheckout.Result, error) {
	var resp paymentResponse
	err := c.do(ctx, http.MethodPost, "/payment/initiate", newPaymentRequest(p), &resp)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) && reqErr.body.Data != nil &&
			reqErr.body.Data.Available != nil && reqErr.body.Data.Requested != nil {
			return nil, &domcheckout.StockShortfallError{
				Message:   reqErr.body.Message,
				Available: *reqErr.body.Data.Available,
				Requested: *reqErr.body.Data.Requested,
			}
		}
		return nil, err
	}
	if resp.PaymentURL == "" {
		return nil, domcheckout.ErrPaymentInitiationFailure
	}
	return &domcheckout.Result{PaymentURL: resp.PaymentURL}, nil
}
