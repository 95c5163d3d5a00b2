package checkout

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sampleOrder() Order {
	return Order{
		Number:   "R123456789",
		Currency: "USD",
		Total:    d("48.50"),
		LineItems: []LineItem{
			{Name: "Ruby Tote", SKU: "TOTE-1", Description: "Canvas tote", Quantity: 2, Price: d("15.00")},
			{Name: "Mug", SKU: "MUG-1", Quantity: 1, Price: d("9.99")},
		},
		Shipments: []Shipment{{Cost: d("5.00")}, {Cost: d("2.51")}},
		ShipAddress: &Address{
			FullName:   "Jane Doe",
			Address1:   "1 Main St",
			Address2:   "Apt 2",
			StateText:  "CA",
			City:       "San Jose",
			CountryISO: "US",
			Zipcode:    "95131",
		},
	}
}

func TestBuild_MissingAddress(t *testing.T) {
	o := sampleOrder()
	o.ShipAddress = nil
	req, err := Build(o, "AUTHORIZE")
	assert.ErrorIs(t, err, ErrMissingAddress)
	assert.Nil(t, req)
}

func TestBuild_LineItemsAndShipping(t *testing.T) {
	req, err := Build(sampleOrder(), "AUTHORIZE")
	require.NoError(t, err)

	assert.Equal(t, "AUTHORIZE", req.Intent)
	require.Len(t, req.PurchaseUnits, 1)
	pu := req.PurchaseUnits[0]
	assert.Equal(t, "R123456789", pu.ReferenceID)

	require.Len(t, pu.Items, 2)
	assert.Equal(t, Item{
		Name:        "Ruby Tote",
		SKU:         "TOTE-1",
		Quantity:    "2",
		Description: "Canvas tote",
		UnitAmount:  Money{CurrencyCode: "USD", Value: "15.00"},
		Category:    "PHYSICAL_GOODS",
	}, pu.Items[0])

	assert.Equal(t, "48.50", pu.Amount.Value)
	assert.Equal(t, "USD", pu.Amount.CurrencyCode)
	assert.Equal(t, "39.99", pu.Amount.Breakdown.ItemTotal.Value)
	assert.Equal(t, "7.51", pu.Amount.Breakdown.Shipping.Value)
	assert.Equal(t, "0.00", pu.Amount.Breakdown.TaxTotal.Value)
	assert.Equal(t, "0.00", pu.Amount.Breakdown.Discount.Value)

	assert.Equal(t, "Jane Doe", pu.Shipping.Name.FullName)
	assert.Equal(t, PostalAddress{
		AddressLine1: "1 Main St",
		AddressLine2: "Apt 2",
		AdminArea1:   "CA",
		AdminArea2:   "San Jose",
		CountryCode:  "US",
		PostalCode:   "95131",
	}, pu.Shipping.Address)
	assert.Equal(t, "SHIPPING", pu.Shipping.Type)
}

func TestBuild_Adjustments(t *testing.T) {
	tests := []struct {
		name         string
		adjustments  []Adjustment
		wantItems    int
		wantItemSum  string
		wantTax      string
		wantDiscount string
	}{
		{
			name:         "None",
			wantItems:    2,
			wantItemSum:  "39.99",
			wantTax:      "0.00",
			wantDiscount: "0.00",
		},
		{
			name:         "SingleOtherAdjustmentBecomesItem",
			adjustments:  []Adjustment{{Label: "Gift wrap", Amount: d("3.00"), Kind: AdjustmentOther, Eligible: true}},
			wantItems:    3,
			wantItemSum:  "42.99",
			wantTax:      "0.00",
			wantDiscount: "0.00",
		},
		{
			name: "Mixed",
			adjustments: []Adjustment{
				{Label: "Sales tax", Amount: d("2.40"), Kind: AdjustmentTax, Eligible: true},
				{Label: "Sales tax (ineligible)", Amount: d("0.10"), Kind: AdjustmentTax},
				{Label: "10% off", Amount: d("-4.00"), Kind: AdjustmentPromotion, Eligible: true},
				{Label: "Free shipping", Amount: d("-1.00"), Kind: AdjustmentPromotion, Eligible: true},
				{Label: "Handling", Amount: d("1.50"), Kind: AdjustmentShipping, Eligible: true},
				{Label: "Gift wrap", Amount: d("3.00"), Kind: AdjustmentOther, Eligible: true},
				{Label: "Expired fee", Amount: d("7.00"), Kind: AdjustmentOther},
				{Label: "Zero fee", Amount: d("0"), Kind: AdjustmentOther, Eligible: true},
			},
			wantItems:    3,
			wantItemSum:  "42.99",
			wantTax:      "2.50",
			wantDiscount: "5.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := sampleOrder()
			o.Adjustments = tt.adjustments
			req, err := Build(o, "CAPTURE")
			require.NoError(t, err)

			pu := req.PurchaseUnits[0]
			assert.Len(t, pu.Items, tt.wantItems)
			assert.Equal(t, tt.wantItemSum, pu.Amount.Breakdown.ItemTotal.Value)
			assert.Equal(t, tt.wantTax, pu.Amount.Breakdown.TaxTotal.Value)
			assert.Equal(t, tt.wantDiscount, pu.Amount.Breakdown.Discount.Value)

			sum, err := req.ItemTotal()
			require.NoError(t, err)
			assert.True(t, sum.Equal(d(tt.wantItemSum)), "item_total must equal the sum over items, got %s", sum)

			discount := d(pu.Amount.Breakdown.Discount.Value)
			assert.False(t, discount.IsNegative())
		})
	}
}

func TestBuild_AdjustmentItemShape(t *testing.T) {
	o := sampleOrder()
	o.Adjustments = []Adjustment{{Label: "Gift wrap", Amount: d("3"), Kind: AdjustmentOther, Eligible: true}}
	req, err := Build(o, "CAPTURE")
	require.NoError(t, err)

	it := req.PurchaseUnits[0].Items[2]
	assert.Equal(t, Item{Name: "Gift wrap", Quantity: "1", UnitAmount: Money{CurrencyCode: "USD", Value: "3.00"}}, it)
}

func TestBuild_JSONShape(t *testing.T) {
	o := sampleOrder()
	o.ShipAddress.Address2 = ""
	req, err := Build(o, "CAPTURE")
	require.NoError(t, err)

	raw, err := json.Marshal(req)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "CAPTURE", doc["intent"])

	pu := doc["purchase_units"].([]any)[0].(map[string]any)
	shipping := pu["shipping"].(map[string]any)
	addr := shipping["address"].(map[string]any)
	assert.NotContains(t, addr, "address_line_2")
	assert.Equal(t, "95131", addr["postal_code"])

	breakdown := pu["amount"].(map[string]any)["breakdown"].(map[string]any)
	assert.Contains(t, breakdown, "item_total")
	assert.Contains(t, breakdown, "shipping")
	assert.Contains(t, breakdown, "tax_total")
	assert.Contains(t, breakdown, "discount")
}
