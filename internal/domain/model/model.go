// Package model holds the records the delivery cost engine reads and writes.
//
// Orders and products are owned by ingestion and the catalog. The engine only
// annotates an order's delivery fields and sets a product's delivery cost.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Order is a channel order with its line items.
type Order struct {
	ID                 string      `json:"id"`
	ChannelOrderNumber string      `json:"channel_order_number"`
	OrderDate          time.Time   `json:"order_date"`
	DeliveryCarrier    string      `json:"delivery_carrier,omitempty"`
	DeliveryCarrierRaw string      `json:"delivery_carrier_raw,omitempty"`
	DeliveryParcels    *int        `json:"delivery_parcels,omitempty"`
	Lines              []OrderLine `json:"lines"`
}

// HasDeliveryData reports whether a manifest has annotated this order.
func (o *Order) HasDeliveryData() bool {
	return o.DeliveryCarrier != ""
}

// OrderLine is one SKU on an order.
type OrderLine struct {
	SKU              string  `json:"sku"`
	Quantity         float64 `json:"quantity"`
	UnitPriceInclVat float64 `json:"unit_price_incl_vat"`
	UnitPriceExVat   float64 `json:"unit_price_ex_vat"`
	LineTotalInclVat float64 `json:"line_total_incl_vat"`
}

// Value is the monetary weight of the line used for value shares.
// The tax-inclusive line total wins; otherwise unit price times quantity.
func (l OrderLine) Value() float64 {
	if l.LineTotalInclVat > 0 {
		return l.LineTotalInclVat
	}
	v := l.UnitPriceInclVat * l.Quantity
	if v < 0 {
		return 0
	}
	return v
}

// DeliveryAnnotation is what a manifest row writes onto a matched order.
type DeliveryAnnotation struct {
	Carrier    string `json:"carrier"`
	RawCarrier string `json:"raw_carrier"`
	Parcels    int    `json:"parcels"`
}

// CarrierCost is the configured flat cost per shipment for a carrier.
// Parcel count never multiplies it.
type CarrierCost struct {
	CarrierID       string    `json:"carrier_id"`
	Name            string    `json:"name"`
	CostPerShipment float64   `json:"cost_per_shipment"`
	IsActive        bool      `json:"is_active"`
	LastUpdated     time.Time `json:"last_updated"`
}

// CostSource records where a product's delivery cost came from.
type CostSource string

const (
	SourceNone            CostSource = "none"
	SourceDirect          CostSource = "direct"
	SourceCategoryAverage CostSource = "category average"
	SourceOverallAverage  CostSource = "overall average"
	SourceOverride        CostSource = "override"
)

// Product is a catalog item. DeliveryCost is per unit, in the price currency.
type Product struct {
	SKU                      string         `json:"sku"`
	Title                    string         `json:"title"`
	Category                 string         `json:"category"`
	Weight                   float64        `json:"weight"`
	DeliveryCost             *float64       `json:"delivery_cost,omitempty"`
	DeliveryCostSource       CostSource     `json:"delivery_cost_source,omitempty"`
	DeliveryCarrierBreakdown map[string]int `json:"delivery_carrier_breakdown,omitempty"`
}

// PrimaryCategory is the category text before the first comma, trimmed.
func (p *Product) PrimaryCategory() string {
	return PrimaryCategory(p.Category)
}

// CurrentDeliveryCost returns the stored cost, or 0 when none is set.
func (p *Product) CurrentDeliveryCost() float64 {
	if p.DeliveryCost == nil {
		return 0
	}
	return *p.DeliveryCost
}

// PrimaryCategory returns the first comma-separated entry of a category field.
func PrimaryCategory(category string) string {
	if i := strings.IndexByte(category, ','); i >= 0 {
		category = category[:i]
	}
	return strings.TrimSpace(category)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Validate checks the fields ingestion must always provide.
func (o *Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("order id is required")
	}
	if strings.TrimSpace(o.ChannelOrderNumber) == "" {
		return fmt.Errorf("order %s: channel order number is required", o.ID)
	}
	for i, l := range o.Lines {
		if strings.TrimSpace(l.SKU) == "" {
			return fmt.Errorf("order %s: line %d has no sku", o.ID, i)
		}
		if l.Quantity < 0 {
			return fmt.Errorf("order %s: line %d has negative quantity", o.ID, i)
		}
	}
	return nil
}
