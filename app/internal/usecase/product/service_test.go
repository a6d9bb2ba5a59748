package product

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domcart "example.com/mechstore/app/internal/domain/cart"
	dom "example.com/mechstore/app/internal/domain/product"
)

type mockReader struct {
	products map[string]*dom.Product
	err      error
	calls    []string
}

func (m *mockReader) GetProduct(ctx context.Context, id string) (*dom.Product, error) {
	m.calls = append(m.calls, id)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, dom.ErrProductNotFound
	}
	return p, nil
}

func TestService_GetOffer(t *testing.T) {
	reader := &mockReader{products: map[string]*dom.Product{
		"drill": {
			ID:    "drill",
			Name:  "Cordless Drill",
			Price: decimal.NewFromInt(100),
			Plans: []dom.PlanTerms{
				{ID: "r3", Months: 3, ProfitPercentage: decimal.NewFromInt(10)},
				{ID: "r6", Months: 6, ProfitPercentage: decimal.NewFromInt(20)},
			},
		},
	}}
	svc := NewService(reader, 0)

	offer, err := svc.GetOffer(context.Background(), " drill ")

	require.NoError(t, err)
	require.Equal(t, "Cordless Drill", offer.Product.Name)
	require.Len(t, offer.Plans, 2)
	require.True(t, offer.Plans[0].ExpectedReturn.Equal(decimal.NewFromInt(110)))
	require.True(t, offer.Plans[1].ProfitAmount.Equal(decimal.NewFromInt(20)))
	require.Equal(t, []string{"drill"}, reader.calls)
}

func TestService_GetOfferErrors(t *testing.T) {
	errUpstream := errors.New("upstream down")
	tests := []struct {
		name    string
		id      string
		reader  *mockReader
		wantErr error
	}{
		{name: "Blank id", id: "  ", reader: &mockReader{}, wantErr: dom.ErrProductNotFound},
		{name: "Unknown product", id: "lathe", reader: &mockReader{}, wantErr: dom.ErrProductNotFound},
		{name: "Upstream error", id: "drill", reader: &mockReader{err: errUpstream}, wantErr: errUpstream},
		{
			name: "Invalid plan terms",
			id:   "bad",
			reader: &mockReader{products: map[string]*dom.Product{
				"bad": {ID: "bad", Price: decimal.NewFromInt(10), Plans: []dom.PlanTerms{{ID: "p", Months: 0}}},
			}},
			wantErr: domcart.ErrInvalidResalePlan,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(tt.reader, 0).GetOffer(context.Background(), tt.id)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
