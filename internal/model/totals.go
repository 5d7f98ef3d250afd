package model

// CartTotals is the backend-authoritative totals view in major currency
// units. A nil *CartTotals means the backend state is unknown or has been
// invalidated by a local edit; consumers must render a loading affordance,
// not zeroes.
type CartTotals struct {
	Currency string  `json:"currency"`
	Symbol   string  `json:"symbol"`
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// QuantityLimits are the backend-derived per-line quantity constraints.
type QuantityLimits struct {
	Min      int  `json:"min"`
	Max      int  `json:"max"`
	Step     int  `json:"step"`
	Editable bool `json:"editable"`
}

// Clamp returns qty adjusted into [Min,Max] and aligned down to the step
// multiple. The zero value behaves as min 1, max unbounded, step 1.
func (l QuantityLimits) Clamp(qty int) int {
	min := l.Min
	if min < 1 {
		min = 1
	}
	step := l.Step
	if step < 1 {
		step = 1
	}
	if qty < min {
		qty = min
	}
	if l.Max > 0 && qty > l.Max {
		qty = l.Max
	}
	if rem := (qty - min) % step; rem != 0 {
		qty -= rem
		if qty < min {
			qty = min
		}
	}
	return qty
}
