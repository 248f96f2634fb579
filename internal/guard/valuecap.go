package guard

// ValueCap rejects any single trade whose total monetary value exceeds a
// fixed ceiling, regardless of account size. Stateless.
type ValueCap struct {
	max float64
}

// NewValueCap creates a cap with the given per-trade ceiling in dollars.
func NewValueCap(max float64) *ValueCap {
	return &ValueCap{max: max}
}

// CheckLimit reports whether total is within the per-trade ceiling, and the
// ceiling itself for error reporting.
func (c *ValueCap) CheckLimit(total float64) (allowed bool, maxAllowed float64) {
	return total <= c.max, c.max
}
