package guard

import "testing"

func TestValueCap_CheckLimit(t *testing.T) {
	c := NewValueCap(2000)

	tests := []struct {
		name    string
		total   float64
		allowed bool
	}{
		{"well under", 150.00, true},
		{"exactly at ceiling", 2000.00, true},
		{"one cent over", 2000.01, false},
		{"far over", 2550.00, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			allowed, maxAllowed := c.CheckLimit(tt.total)
			if allowed != tt.allowed {
				t.Errorf("CheckLimit(%v) allowed = %v, want %v", tt.total, allowed, tt.allowed)
			}
			if maxAllowed != 2000 {
				t.Errorf("maxAllowed = %v, want 2000", maxAllowed)
			}
		})
	}
}
