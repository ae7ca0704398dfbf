package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ZeroMemberPolicy decides what a share is when nobody is active.
type ZeroMemberPolicy string

const (
	// ZeroMemberFloor divides by one: the whole cost lands on a single head.
	ZeroMemberFloor ZeroMemberPolicy = "floor"
	// ZeroMemberSuppress allocates nothing.
	ZeroMemberSuppress ZeroMemberPolicy = "suppress"
)

// ParseZeroMemberPolicy falls back to ZeroMemberFloor for unknown input.
func ParseZeroMemberPolicy(raw string) ZeroMemberPolicy {
	switch ZeroMemberPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case ZeroMemberSuppress:
		return ZeroMemberSuppress
	default:
		return ZeroMemberFloor
	}
}

// Allocator splits shared costs equally between active members.
type Allocator struct {
	Policy ZeroMemberPolicy
}

func (a Allocator) PerHeadShare(cost decimal.Decimal, memberCount int) decimal.Decimal {
	if memberCount > 0 {
		return cost.Div(decimal.NewFromInt(int64(memberCount)))
	}
	if a.Policy == ZeroMemberSuppress {
		return decimal.Zero
	}
	return cost
}

// AggregatePerHead sums the per-head share of every cost.
func (a Allocator) AggregatePerHead(costs []decimal.Decimal, memberCount int) decimal.Decimal {
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(a.PerHeadShare(c, memberCount))
	}
	return total
}

var defaultAllocator = Allocator{Policy: ZeroMemberFloor}

// PerHeadShare uses the floor policy.
func PerHeadShare(cost decimal.Decimal, memberCount int) decimal.Decimal {
	return defaultAllocator.PerHeadShare(cost, memberCount)
}

// AggregatePerHead uses the floor policy.
func AggregatePerHead(costs []decimal.Decimal, memberCount int) decimal.Decimal {
	return defaultAllocator.AggregatePerHead(costs, memberCount)
}
