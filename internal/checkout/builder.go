// Package checkout turns a storefront order snapshot into the payload the
// processor's order creation endpoint expects.
package checkout

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

const (
	categoryPhysicalGoods = "PHYSICAL_GOODS"
	addressTypeShipping   = "SHIPPING"
)

var ErrMissingAddress = errors.New("checkout: order has no shipping address")

// Money is an amount in the processor's wire format.
type Money struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

func newMoney(currency string, d decimal.Decimal) Money {
	return Money{CurrencyCode: currency, Value: d.StringFixed(2)}
}

type Item struct {
	Name        string `json:"name"`
	SKU         string `json:"sku,omitempty"`
	Quantity    string `json:"quantity"`
	Description string `json:"description,omitempty"`
	UnitAmount  Money  `json:"unit_amount"`
	Category    string `json:"category,omitempty"`
}

type Breakdown struct {
	ItemTotal Money `json:"item_total"`
	Shipping  Money `json:"shipping"`
	TaxTotal  Money `json:"tax_total"`
	Discount  Money `json:"discount"`
}

type Amount struct {
	CurrencyCode string    `json:"currency_code"`
	Value        string    `json:"value"`
	Breakdown    Breakdown `json:"breakdown"`
}

type Name struct {
	FullName string `json:"full_name"`
}

type PostalAddress struct {
	AddressLine1 string `json:"address_line_1"`
	AddressLine2 string `json:"address_line_2,omitempty"`
	AdminArea1   string `json:"admin_area_1"`
	AdminArea2   string `json:"admin_area_2"`
	CountryCode  string `json:"country_code"`
	PostalCode   string `json:"postal_code"`
}

type Shipping struct {
	Name    Name          `json:"name"`
	Address PostalAddress `json:"address"`
	Type    string        `json:"type"`
}

type PurchaseUnit struct {
	ReferenceID string   `json:"reference_id"`
	Amount      Amount   `json:"amount"`
	Items       []Item   `json:"items"`
	Shipping    Shipping `json:"shipping"`
}

// OrderRequest is the body of the processor's order creation call.
type OrderRequest struct {
	Intent        string         `json:"intent"`
	PurchaseUnits []PurchaseUnit `json:"purchase_units"`
}

// Build assembles the order creation payload for order with the given intent.
//
// Eligible, non-zero adjustments that are neither tax, shipping nor promotion
// are folded in as extra items of quantity one. The breakdown is reported as
// computed; it is not reconciled against the order total.
func Build(order Order, intent string) (*OrderRequest, error) {
	if order.ShipAddress == nil {
		return nil, ErrMissingAddress
	}
	currency := order.Currency

	type pricedItem struct {
		item  Item
		price decimal.Decimal
		qty   int64
	}
	priced := make([]pricedItem, 0, len(order.LineItems)+len(order.Adjustments))

	for _, li := range order.LineItems {
		priced = append(priced, pricedItem{
			item: Item{
				Name:        li.Name,
				SKU:         li.SKU,
				Quantity:    strconv.FormatInt(li.Quantity, 10),
				Description: li.Description,
				UnitAmount:  newMoney(currency, li.Price),
				Category:    categoryPhysicalGoods,
			},
			price: li.Price,
			qty:   li.Quantity,
		})
	}

	taxTotal, promotionTotal := decimal.Zero, decimal.Zero
	for _, adj := range order.Adjustments {
		switch adj.Kind {
		case AdjustmentTax:
			taxTotal = taxTotal.Add(adj.Amount)
			continue
		case AdjustmentPromotion:
			promotionTotal = promotionTotal.Add(adj.Amount)
			continue
		case AdjustmentShipping:
			continue
		}
		if !adj.Eligible || adj.Amount.IsZero() {
			continue
		}
		priced = append(priced, pricedItem{
			item: Item{
				Name:       adj.Label,
				Quantity:   "1",
				UnitAmount: newMoney(currency, adj.Amount),
			},
			price: adj.Amount,
			qty:   1,
		})
	}

	itemTotal := decimal.Zero
	items := make([]Item, 0, len(priced))
	for _, p := range priced {
		itemTotal = itemTotal.Add(p.price.Mul(decimal.NewFromInt(p.qty)))
		items = append(items, p.item)
	}

	shippingTotal := decimal.Zero
	for _, s := range order.Shipments {
		shippingTotal = shippingTotal.Add(s.Cost)
	}

	addr := order.ShipAddress
	return &OrderRequest{
		Intent: intent,
		PurchaseUnits: []PurchaseUnit{{
			ReferenceID: order.Number,
			Amount: Amount{
				CurrencyCode: currency,
				Value:        order.Total.StringFixed(2),
				Breakdown: Breakdown{
					ItemTotal: newMoney(currency, itemTotal),
					Shipping:  newMoney(currency, shippingTotal),
					TaxTotal:  newMoney(currency, taxTotal),
					Discount:  newMoney(currency, promotionTotal.Abs()),
				},
			},
			Items: items,
			Shipping: Shipping{
				Name: Name{FullName: addr.FullName},
				Address: PostalAddress{
					AddressLine1: addr.Address1,
					AddressLine2: addr.Address2,
					AdminArea1:   addr.StateText,
					AdminArea2:   addr.City,
					CountryCode:  addr.CountryISO,
					PostalCode:   addr.Zipcode,
				},
				Type: addressTypeShipping,
			},
		}},
	}, nil
}

// ItemTotal recomputes Σ unit_amount × quantity over the request's items.
func (r *OrderRequest) ItemTotal() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, pu := range r.PurchaseUnits {
		for _, it := range pu.Items {
			price, err := decimal.NewFromString(it.UnitAmount.Value)
			if err != nil {
				return decimal.Zero, fmt.Errorf("checkout: item %q unit amount: %w", it.Name, err)
			}
			qty, err := decimal.NewFromString(it.Quantity)
			if err != nil {
				return decimal.Zero, fmt.Errorf("checkout: item %q quantity: %w", it.Name, err)
			}
			total = total.Add(price.Mul(qty))
		}
	}
	return total, nil
}
