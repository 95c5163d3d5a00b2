package checkout

import "github.com/shopspring/decimal"

// AdjustmentKind classifies an order adjustment.
type AdjustmentKind string

const (
	AdjustmentTax       AdjustmentKind = "tax"
	AdjustmentShipping  AdjustmentKind = "shipping"
	AdjustmentPromotion AdjustmentKind = "promotion"
	AdjustmentOther     AdjustmentKind = "other"
)

// Order is the snapshot of a storefront order used to create the processor order.
type Order struct {
	Number      string          `json:"number"`
	Currency    string          `json:"currency"`
	Total       decimal.Decimal `json:"total"`
	LineItems   []LineItem      `json:"line_items"`
	Adjustments []Adjustment    `json:"adjustments"`
	Shipments   []Shipment      `json:"shipments"`
	ShipAddress *Address        `json:"ship_address"`
}

type LineItem struct {
	Name        string          `json:"name"`
	SKU         string          `json:"sku"`
	Description string          `json:"description"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// Adjustment is an additional charge or credit on the order. Promotions are
// stored as negative amounts.
type Adjustment struct {
	Label    string          `json:"label"`
	Amount   decimal.Decimal `json:"amount"`
	Kind     AdjustmentKind  `json:"kind"`
	Eligible bool            `json:"eligible"`
}

type Shipment struct {
	Cost decimal.Decimal `json:"cost"`
}

type Address struct {
	FullName   string `json:"full_name"`
	Address1   string `json:"address1"`
	Address2   string `json:"address2"`
	StateText  string `json:"state_text"`
	City       string `json:"city"`
	CountryISO string `json:"country_iso"`
	Zipcode    string `json:"zipcode"`
}
