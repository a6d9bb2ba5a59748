package storefront

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domproduct "example.com/mechstore/app/internal/domain/product"
)

type planDTO struct {
	ID               string          `json:"id"`
	Months           int             `json:"months"`
	ProfitPercentage decimal.Decimal `json:"profitPercentage"`
}

type productDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	NameAr      string          `json:"nameAr"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	ResalePlans []planDTO       `json:"resalePlans"`
}

func (p productDTO) toDomain() *domproduct.Product {
	out := &domproduct.Product{
		ID:     p.ID,
		Name:   p.Name,
		NameAr: p.NameAr,
		Price:  p.Price,
		Image:  p.Image,
		Plans:  make([]domproduct.PlanTerms, 0, len(p.ResalePlans)),
	}
	for _, pl := range p.ResalePlans {
		out.Plans = append(out.Plans, domproduct.PlanTerms{
			ID:               pl.ID,
			Months:           pl.Months,
			ProfitPercentage: pl.ProfitPercentage,
		})
	}
	return out
}

type cartItemDTO struct {
	ProductID    string     `json:"productId"`
	Quantity     int64      `json:"quantity"`
	PurchaseType string     `json:"purchaseType"`
	ResalePlanID *string    `json:"resalePlanId"`
	CompanyID    *string    `json:"companyId"`
	Product      productDTO `json:"product"`
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type optionsRequest struct {
	PurchaseType *string `json:"purchaseType,omitempty"`
	ResalePlanID *string `json:"resalePlanId,omitempty"`
	CompanyID    *string `json:"companyId,omitempty"`
}

type envelope[T any] struct {
	Data T `json:"data"`
}

func (c *Client) toItem(dto cartItemDTO) (domcart.Item, error) {
	p := dto.Product.toDomain()
	if p.ID == "" {
		p.ID = dto.ProductID
	}
	it, err := p.ToItem(dto.Quantity)
	if err != nil {
		return domcart.Item{}, fmt.Errorf("cart item %s: %w", p.ID, err)
	}

	if dto.PurchaseType != "" {
		mode, err := domcart.ParsePurchaseMode(dto.PurchaseType)
		if err != nil {
			return domcart.Item{}, fmt.Errorf("cart item %s: %w", p.ID, err)
		}
		it.PurchaseMode = mode
	}
	if dto.ResalePlanID != nil && *dto.ResalePlanID != "" {
		if _, ok := it.Plan(*dto.ResalePlanID); ok {
			it.SelectedPlanID = *dto.ResalePlanID
		} else {
			c.logger.Warn("upstream cart item references unknown resale plan",
				zap.String("product_id", it.ProductID), zap.String("plan_id", *dto.ResalePlanID))
		}
	}
	if dto.CompanyID != nil {
		it.CompanyID = *dto.CompanyID
	}
	return it, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domproduct.Product, error) {
	var resp envelope[productDTO]
	err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), nil, &resp)
	if isStatus(err, http.StatusNotFound) {
		return nil, domproduct.ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	p := resp.Data.toDomain()
	if p.ID == "" {
		p.ID = id
	}
	return p, nil
}

func (c *Client) FetchCart(ctx context.Context) ([]domcart.Item, error) {
	var resp envelope[[]cartItemDTO]
	if err := c.do(ctx, http.MethodGet, "/cart", nil, &resp); err != nil {
		return nil, err
	}
	items := make([]domcart.Item, 0, len(resp.Data))
	for _, dto := range resp.Data {
		it, err := c.toItem(dto)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (c *Client) AddItem(ctx context.Context, productID string, quantity int64) (*domcart.Item, error) {
	var resp envelope[*cartItemDTO]
	req := addItemRequest{ProductID: productID, Quantity: quantity}
	if err := c.do(ctx, http.MethodPost, "/cart", req, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, nil
	}
	it, err := c.toItem(*resp.Data)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) UpdateOptions(ctx context.Context, productID string, opts domcart.Options) error {
	var req optionsRequest
	if opts.PurchaseType != nil {
		mode := string(*opts.PurchaseType)
		req.PurchaseType = &mode
	}
	req.ResalePlanID = opts.ResalePlanID
	req.CompanyID = opts.CompanyID
	return c.do(ctx, http.MethodPatch, "/cart/"+url.PathEscape(productID)+"/options", req, nil)
}

func (c *Client) Increase(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodPost, "/cart/"+url.PathEscape(productID)+"/increase", nil, nil)
}

func (c *Client) Decrease(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodPost, "/cart/"+url.PathEscape(productID)+"/decrease", nil, nil)
}

func (c *Client) RemoveItem(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/cart/"+url.PathEscape(productID), nil, nil)
}
