// Package reconcile computes the delta between the backend cart and the
// session ledger. The sync engine fetches the backend state, diffs it
// against the ledger, and executes only the necessary mutations in
// remove → update → add order.
package reconcile

// ItemDiff describes the mutations needed to converge the backend cart on
// the ledger. Apply in order: Remove → Update → Add, so an update never
// races a removal of the same line.
type ItemDiff struct {
	ToAdd    []ItemToAdd    // in ledger but not upstream
	ToRemove []ItemToRemove // upstream but not in ledger
	ToUpdate []ItemToUpdate // in both with different quantities
}

// ItemToAdd specifies a new item to add upstream. The Store API resolves a
// variation id as the id to add directly.
type ItemToAdd struct {
	ProductID   int
	VariationID int
	Quantity    int
}

// ItemToRemove specifies an upstream item to remove. CartKey is the Store
// API item key required by the removal endpoint.
type ItemToRemove struct {
	Identity int
	CartKey  string
}

// ItemToUpdate specifies a quantity change for an existing upstream item.
type ItemToUpdate struct {
	Identity    int
	CartKey     string
	OldQuantity int
	NewQuantity int
}

// IsEmpty returns true if no item changes are needed.
func (d *ItemDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.ToUpdate) == 0
}

// CurrentItem is one line of the backend cart as fetched.
type CurrentItem struct {
	ProductID   int    // parent product id
	VariationID int    // zero for simple products
	CartKey     string // Store API item key, needed for update and remove calls
	Quantity    int
}

// identity returns the id the backend reports per line: the variation id
// when the line is a variation, the product id otherwise.
func (c CurrentItem) identity() int {
	if c.VariationID != 0 {
		return c.VariationID
	}
	return c.ProductID
}

// DesiredItem is one line of the session ledger.
type DesiredItem struct {
	ProductID   int
	VariationID int
	Quantity    int
}

func (d DesiredItem) identity() int {
	if d.VariationID != 0 {
		return d.VariationID
	}
	return d.ProductID
}

// DiffItems computes the delta between the backend cart and the ledger.
// Matching is by identity: variation id when present, product id otherwise.
// Duplicate identities in desired collapse to a summed quantity.
func DiffItems(current []CurrentItem, desired []DesiredItem) *ItemDiff {
	diff := &ItemDiff{}

	currentByID := make(map[int]CurrentItem, len(current))
	for _, item := range current {
		currentByID[item.identity()] = item
	}

	desiredByID := make(map[int]DesiredItem, len(desired))
	order := make([]int, 0, len(desired))
	for _, item := range desired {
		id := item.identity()
		if prev, exists := desiredByID[id]; exists {
			prev.Quantity += item.Quantity
			desiredByID[id] = prev
			continue
		}
		desiredByID[id] = item
		order = append(order, id)
	}

	for _, id := range order {
		want := desiredByID[id]
		if have, exists := currentByID[id]; exists {
			if have.Quantity != want.Quantity {
				diff.ToUpdate = append(diff.ToUpdate, ItemToUpdate{
					Identity:    id,
					CartKey:     have.CartKey,
					OldQuantity: have.Quantity,
					NewQuantity: want.Quantity,
				})
			}
		} else {
			diff.ToAdd = append(diff.ToAdd, ItemToAdd{
				ProductID:   want.ProductID,
				VariationID: want.VariationID,
				Quantity:    want.Quantity,
			})
		}
	}

	for _, item := range current {
		if _, exists := desiredByID[item.identity()]; !exists {
			diff.ToRemove = append(diff.ToRemove, ItemToRemove{
				Identity: item.identity(),
				CartKey:  item.CartKey,
			})
		}
	}

	return diff
}

// CouponDiff describes the mutations needed to reconcile coupon codes.
type CouponDiff struct {
	ToApply  []string // codes in desired but not current
	ToRemove []string // codes in current but not desired
}

// IsEmpty returns true if no coupon changes are needed.
func (d *CouponDiff) IsEmpty() bool {
	return len(d.ToApply) == 0 && len(d.ToRemove) == 0
}

// DiffCoupons computes the set difference between applied and desired
// coupon codes.
func DiffCoupons(currentCodes, desiredCodes []string) *CouponDiff {
	diff := &CouponDiff{}

	currentSet := make(map[string]bool, len(currentCodes))
	for _, code := range currentCodes {
		currentSet[code] = true
	}

	desiredSet := make(map[string]bool, len(desiredCodes))
	for _, code := range desiredCodes {
		desiredSet[code] = true
	}

	for _, code := range desiredCodes {
		if !currentSet[code] {
			diff.ToApply = append(diff.ToApply, code)
		}
	}

	for _, code := range currentCodes {
		if !desiredSet[code] {
			diff.ToRemove = append(diff.ToRemove, code)
		}
	}

	return diff
}

// ShippingRateChanged returns true if a different rate should be selected.
// An empty desired id means no change requested.
func ShippingRateChanged(currentID, desiredID string) bool {
	return desiredID != "" && currentID != desiredID
}
