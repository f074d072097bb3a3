package enums

import (
	"fmt"
	"time"
)

// BillingCycle defines the recurring period a subscription renews on.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleAnnually  BillingCycle = "annually"
)

var validBillingCycles = []BillingCycle{
	BillingCycleMonthly,
	BillingCycleQuarterly,
	BillingCycleAnnually,
}

// String implements fmt.Stringer.
func (b BillingCycle) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BillingCycle.
func (b BillingCycle) IsValid() bool {
	for _, candidate := range validBillingCycles {
		if candidate == b {
			return true
		}
	}
	return false
}

// Advance returns the given instant moved forward by one billing cycle.
func (b BillingCycle) Advance(from time.Time) time.Time {
	switch b {
	case BillingCycleQuarterly:
		return from.AddDate(0, 3, 0)
	case BillingCycleAnnually:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// ParseBillingCycle converts raw input into a BillingCycle.
func ParseBillingCycle(value string) (BillingCycle, error) {
	for _, candidate := range validBillingCycles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid billing cycle %q", value)
}
