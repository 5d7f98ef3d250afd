package reconcile

import (
	"testing"
)

func TestDiffItems_EmptyToItems(t *testing.T) {
	diff := DiffItems(nil, []DesiredItem{
		{ProductID: 10, Quantity: 2},
		{ProductID: 20, VariationID: 25, Quantity: 1},
	})

	if len(diff.ToAdd) != 2 {
		t.Errorf("ToAdd = %d, want 2", len(diff.ToAdd))
	}
	if len(diff.ToRemove) != 0 || len(diff.ToUpdate) != 0 {
		t.Errorf("ToRemove = %d, ToUpdate = %d, want 0, 0", len(diff.ToRemove), len(diff.ToUpdate))
	}
}

func TestDiffItems_ItemsToEmpty(t *testing.T) {
	diff := DiffItems([]CurrentItem{
		{ProductID: 10, CartKey: "key-1", Quantity: 2},
		{ProductID: 20, VariationID: 25, CartKey: "key-2", Quantity: 1},
	}, nil)

	if len(diff.ToRemove) != 2 {
		t.Fatalf("ToRemove = %d, want 2", len(diff.ToRemove))
	}
	for _, item := range diff.ToRemove {
		if item.CartKey == "" {
			t.Error("ToRemove item missing CartKey")
		}
	}
}

func TestDiffItems_QuantityUpdate(t *testing.T) {
	diff := DiffItems(
		[]CurrentItem{{ProductID: 10, CartKey: "key-1", Quantity: 2}},
		[]DesiredItem{{ProductID: 10, Quantity: 5}},
	)

	if len(diff.ToUpdate) != 1 {
		t.Fatalf("ToUpdate = %d, want 1", len(diff.ToUpdate))
	}
	up := diff.ToUpdate[0]
	if up.OldQuantity != 2 || up.NewQuantity != 5 || up.CartKey != "key-1" {
		t.Errorf("update = %+v, want old 2 new 5 key-1", up)
	}
}

func TestDiffItems_NoChange(t *testing.T) {
	diff := DiffItems(
		[]CurrentItem{{ProductID: 10, CartKey: "key-1", Quantity: 2}},
		[]DesiredItem{{ProductID: 10, Quantity: 2}},
	)
	if !diff.IsEmpty() {
		t.Errorf("diff = %+v, want empty", diff)
	}
}

func TestDiffItems_VariationIdentity(t *testing.T) {
	// The backend reports variations under the variation id; the parent
	// product id must not collide.
	diff := DiffItems(
		[]CurrentItem{{ProductID: 10, VariationID: 15, CartKey: "key-1", Quantity: 1}},
		[]DesiredItem{
			{ProductID: 10, VariationID: 15, Quantity: 1}, // unchanged
			{ProductID: 10, VariationID: 16, Quantity: 2}, // new variation
		},
	)

	if len(diff.ToAdd) != 1 {
		t.Fatalf("ToAdd = %d, want 1", len(diff.ToAdd))
	}
	if diff.ToAdd[0].VariationID != 16 {
		t.Errorf("ToAdd VariationID = %d, want 16", diff.ToAdd[0].VariationID)
	}
	if len(diff.ToRemove) != 0 || len(diff.ToUpdate) != 0 {
		t.Errorf("ToRemove = %d, ToUpdate = %d, want 0, 0", len(diff.ToRemove), len(diff.ToUpdate))
	}
}

func TestDiffItems_DuplicateDesiredCollapses(t *testing.T) {
	// Two ledger lines with the same backend identity (attribute-only
	// differences) converge to one upstream line with the summed quantity.
	diff := DiffItems(
		[]CurrentItem{{ProductID: 10, CartKey: "key-1", Quantity: 1}},
		[]DesiredItem{
			{ProductID: 10, Quantity: 2},
			{ProductID: 10, Quantity: 3},
		},
	)

	if len(diff.ToUpdate) != 1 {
		t.Fatalf("ToUpdate = %d, want 1", len(diff.ToUpdate))
	}
	if diff.ToUpdate[0].NewQuantity != 5 {
		t.Errorf("NewQuantity = %d, want 5", diff.ToUpdate[0].NewQuantity)
	}
}

func TestDiffItems_MixedOperations(t *testing.T) {
	diff := DiffItems(
		[]CurrentItem{
			{ProductID: 1, CartKey: "key-1", Quantity: 2}, // removed
			{ProductID: 2, CartKey: "key-2", Quantity: 1}, // updated
			{ProductID: 3, CartKey: "key-3", Quantity: 3}, // unchanged
		},
		[]DesiredItem{
			{ProductID: 2, Quantity: 5},
			{ProductID: 3, Quantity: 3},
			{ProductID: 4, Quantity: 1},
		},
	)

	if len(diff.ToAdd) != 1 || diff.ToAdd[0].ProductID != 4 {
		t.Errorf("ToAdd = %+v, want product 4", diff.ToAdd)
	}
	if len(diff.ToRemove) != 1 || diff.ToRemove[0].CartKey != "key-1" {
		t.Errorf("ToRemove = %+v, want key-1", diff.ToRemove)
	}
	if len(diff.ToUpdate) != 1 || diff.ToUpdate[0].Identity != 2 {
		t.Errorf("ToUpdate = %+v, want identity 2", diff.ToUpdate)
	}
}

func TestDiffCoupons(t *testing.T) {
	tests := []struct {
		name       string
		current    []string
		desired    []string
		wantApply  []string
		wantRemove []string
	}{
		{"empty to codes", nil, []string{"SAVE10"}, []string{"SAVE10"}, nil},
		{"codes to empty", []string{"SAVE10"}, nil, nil, []string{"SAVE10"}},
		{"replace", []string{"OLD"}, []string{"NEW"}, []string{"NEW"}, []string{"OLD"}},
		{"no change", []string{"SAVE10"}, []string{"SAVE10"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := DiffCoupons(tt.current, tt.desired)
			if len(diff.ToApply) != len(tt.wantApply) {
				t.Errorf("ToApply = %v, want %v", diff.ToApply, tt.wantApply)
			}
			if len(diff.ToRemove) != len(tt.wantRemove) {
				t.Errorf("ToRemove = %v, want %v", diff.ToRemove, tt.wantRemove)
			}
			for i := range tt.wantApply {
				if diff.ToApply[i] != tt.wantApply[i] {
					t.Errorf("ToApply = %v, want %v", diff.ToApply, tt.wantApply)
				}
			}
			for i := range tt.wantRemove {
				if diff.ToRemove[i] != tt.wantRemove[i] {
					t.Errorf("ToRemove = %v, want %v", diff.ToRemove, tt.wantRemove)
				}
			}
		})
	}
}

func TestShippingRateChanged(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		desired  string
		expected bool
	}{
		{"empty to value", "", "flat_rate:1", true},
		{"value to different", "flat_rate:1", "free_shipping:2", true},
		{"same value", "flat_rate:1", "flat_rate:1", false},
		{"value to empty", "flat_rate:1", "", false}, // empty desired = no change requested
		{"both empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShippingRateChanged(tt.current, tt.desired); got != tt.expected {
				t.Errorf("ShippingRateChanged(%q, %q) = %v, want %v",
					tt.current, tt.desired, got, tt.expected)
			}
		})
	}
}
