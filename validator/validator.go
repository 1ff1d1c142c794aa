package validator

import (
	"fmt"
	"strconv"
)

// Range is an inclusive numeric range. A nil bound is open.
type Range struct {
	Min *float64
	Max *float64
}

// Bounded reports whether any bound is set.
func (r Range) Bounded() bool {
	return r.Min != nil || r.Max != nil
}

// Validate checks that v lies within the range.
func (r Range) Validate(v float64) error {
	if r.Min != nil && v < *r.Min {
		return fmt.Errorf("value %s below minimum %s", format(v), format(*r.Min))
	}
	if r.Max != nil && v > *r.Max {
		return fmt.Errorf("value %s above maximum %s", format(v), format(*r.Max))
	}
	return nil
}

// String renders the range in interval notation, e.g. [0, 254].
func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = format(*r.Min)
	}
	if r.Max != nil {
		hi = format(*r.Max)
	}
	return "[" + lo + ", " + hi + "]"
}

func format(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
