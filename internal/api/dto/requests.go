package dto

// SetCarrierCostRequest is the body of PUT /api/tenants/{tenant}/carriers/{label}.
// IsActive defaults to true when omitted.
type SetCarrierCostRequest struct {
	CostPerShipment *float64 `json:"cost_per_shipment"`
	IsActive        *bool    `json:"is_active,omitempty"`
}

// Active resolves the optional active flag
func (r SetCarrierCostRequest) Active() bool {
	return r.IsActive == nil || *r.IsActive
}
