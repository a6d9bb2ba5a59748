package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domcart "example.com/mechstore/app/internal/domain/cart"
	domdiscount "example.com/mechstore/app/internal/domain/discount"
)

func items(t *testing.T, mode domcart.PurchaseMode) []domcart.Item {
	t.Helper()
	plan, err := domcart.NewResalePlan("r3", 3, decimal.NewFromInt(10), decimal.NewFromInt(100))
	require.NoError(t, err)
	return []domcart.Item{
		{ProductID: "drill", UnitPrice: decimal.NewFromInt(100), Quantity: 1, PurchaseMode: mode, ResalePlans: []domcart.ResalePlan{plan}},
		{ProductID: "gloves", UnitPrice: decimal.NewFromInt(40), Quantity: 2, PurchaseMode: mode},
	}
}

var ship = ShippingInput{Phone: " 0100 ", Address: "12 Nile St", ExtraPhones: []string{"", "0111", "  "}}

func TestBuildPayload_MixedOrder(t *testing.T) {
	sel := domcart.Selection{PurchaseMode: domcart.ModeResale, CompanyID: "fastship"}

	p, err := BuildPayload(items(t, domcart.ModeResale), sel, domdiscount.State{}, ship)

	require.NoError(t, err)
	require.Len(t, p.Lines, 2)
	require.Equal(t, domcart.ModeResale, p.Lines[0].PurchaseType)
	require.Equal(t, "r3", *p.Lines[0].ResalePlanID)
	require.Equal(t, domcart.ModeWallet, p.Lines[1].PurchaseType)
	require.Nil(t, p.Lines[1].ResalePlanID)
	require.Equal(t, "fastship", p.Lines[1].CompanyID)

	require.NotNil(t, p.Shipping, "a wallet line still ships")
	require.Equal(t, "0100", p.Shipping.Phone)
	require.Equal(t, []string{"0111"}, p.Shipping.ExtraPhones)
	require.Empty(t, p.DiscountCode)
	require.True(t, p.DiscountPercent.IsZero())
}

func TestBuildPayload_ResaleOnlyOmitsShipping(t *testing.T) {
	sel := domcart.Selection{PurchaseMode: domcart.ModeResale, CompanyID: "fastship"}

	p, err := BuildPayload(items(t, domcart.ModeResale)[:1], sel, domdiscount.State{}, ShippingInput{})

	require.NoError(t, err)
	require.Nil(t, p.Shipping)
}

func TestBuildPayload_ItemCompanyWins(t *testing.T) {
	its := items(t, domcart.ModeWallet)
	its[0].CompanyID = "northline"
	sel := domcart.Selection{PurchaseMode: domcart.ModeWallet, CompanyID: "fastship"}

	p, err := BuildPayload(its, sel, domdiscount.State{}, ship)

	require.NoError(t, err)
	require.Equal(t, "northline", p.Lines[0].CompanyID)
	require.Equal(t, "fastship", p.Lines[1].CompanyID)
}

func TestBuildPayload_Discount(t *testing.T) {
	disc, err := domdiscount.NewState("save10", decimal.NewFromInt(10))
	require.NoError(t, err)
	sel := domcart.Selection{PurchaseMode: domcart.ModeWallet, CompanyID: "fastship"}

	p, err := BuildPayload(items(t, domcart.ModeWallet), sel, disc, ship)

	require.NoError(t, err)
	require.Equal(t, "SAVE10", p.DiscountCode)
	require.True(t, p.DiscountPercent.Equal(decimal.NewFromInt(10)))
}

func TestBuildPayload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		items   []domcart.Item
		sel     domcart.Selection
		ship    ShippingInput
		wantErr error
	}{
		{
			name:    "Empty cart",
			sel:     domcart.Selection{PurchaseMode: domcart.ModeWallet, CompanyID: "fastship"},
			ship:    ship,
			wantErr: ErrEmptyCart,
		},
		{
			name:    "No company",
			items:   items(t, domcart.ModeWallet),
			sel:     domcart.Selection{PurchaseMode: domcart.ModeWallet, CompanyID: "  "},
			ship:    ship,
			wantErr: ErrDeliveryPartnerRequired,
		},
		{
			name:    "Wallet without phone",
			items:   items(t, domcart.ModeWallet),
			sel:     domcart.Selection{PurchaseMode: domcart.ModeWallet, CompanyID: "fastship"},
			ship:    ShippingInput{Address: "12 Nile St"},
			wantErr: ErrShippingInfoRequired,
		},
		{
			name:    "Wallet with blank address",
			items:   items(t, domcart.ModeWallet),
			sel:     domcart.Selection{PurchaseMode: domcart.ModeWallet, CompanyID: "fastship"},
			ship:    ShippingInput{Phone: "0100", Address: "   "},
			wantErr: ErrShippingInfoRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildPayload(tt.items, tt.sel, domdiscount.State{}, tt.ship)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
