package model

import "testing"

func TestQuantityLimitsClamp(t *testing.T) {
	tests := []struct {
		name   string
		limits QuantityLimits
		qty    int
		want   int
	}{
		{"zero value defaults", QuantityLimits{}, 5, 5},
		{"zero value floors at one", QuantityLimits{}, 0, 1},
		{"below min", QuantityLimits{Min: 2, Max: 10, Step: 1}, 1, 2},
		{"above max", QuantityLimits{Min: 1, Max: 10, Step: 1}, 99, 10},
		{"unbounded max", QuantityLimits{Min: 1, Max: 0, Step: 1}, 500, 500},
		{"step alignment down", QuantityLimits{Min: 1, Max: 20, Step: 3}, 6, 4},
		{"step aligned stays", QuantityLimits{Min: 1, Max: 20, Step: 3}, 7, 7},
		{"step from min two", QuantityLimits{Min: 2, Max: 20, Step: 2}, 5, 4},
		{"max not step aligned", QuantityLimits{Min: 1, Max: 9, Step: 4}, 12, 9},
		{"negative qty", QuantityLimits{Min: 1, Max: 10, Step: 1}, -3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.limits.Clamp(tt.qty); got != tt.want {
				t.Errorf("Clamp(%d) = %d, want %d", tt.qty, got, tt.want)
			}
		})
	}
}
