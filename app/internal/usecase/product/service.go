package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	domcart "example.com/mechstore/app/internal/domain/cart"
	dom "example.com/mechstore/app/internal/domain/product"
)

const defaultTimeout = 10 * time.Second

// Offer is a catalog product with its resale plans bound to the current price.
type Offer struct {
	Product *dom.Product
	Plans   []domcart.ResalePlan
}

type Service struct {
	reader  dom.Reader
	timeout time.Duration
}

func NewService(reader dom.Reader, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Service{reader: reader, timeout: timeout}
}

func (s *Service) GetOffer(ctx context.Context, id string) (*Offer, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dom.ErrProductNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.reader.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	plans, err := p.ResalePlans()
	if err != nil {
		return nil, fmt.Errorf("product %s plans: %w", id, err)
	}
	return &Offer{Product: p, Plans: plans}, nil
}
