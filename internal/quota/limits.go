// Package quota defines the static subscription-tier limit table. Pure data,
// no state; services combine it with live usage to make entitlement decisions.
package quota

// Tier identifies a subscription plan level.
type Tier string

// Subscription tiers.
const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPro      Tier = "pro"
)

// Resource identifies a countable or metered tenant resource.
type Resource string

// Quota-enforced resources.
const (
	ResourceBoards  Resource = "boards"
	ResourceCards   Resource = "cards"
	ResourceStorage Resource = "storage_bytes"
)

// Unlimited marks a resource with no limit.
const Unlimited int64 = -1

// Limits holds the numeric ceilings for one tier.
type Limits struct {
	MaxBoards       int64 `json:"boards"`
	MaxCards        int64 `json:"cards"`
	MaxStorageBytes int64 `json:"storage_bytes"`
}

var tierLimits = map[Tier]Limits{
	TierFree: {
		MaxBoards:       10,
		MaxCards:        500,
		MaxStorageBytes: 250 * 1024 * 1024, // 250 MB
	},
	TierStandard: {
		MaxBoards:       100,
		MaxCards:        10_000,
		MaxStorageBytes: 5 * 1024 * 1024 * 1024, // 5 GB
	},
	TierPro: {
		MaxBoards:       Unlimited,
		MaxCards:        Unlimited,
		MaxStorageBytes: 50 * 1024 * 1024 * 1024, // 50 GB
	},
}

// ForTier returns the limit set for a tier, defaulting to free limits for
// unknown tiers so a corrupted tier value never grants unlimited usage.
func ForTier(t Tier) Limits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

// For returns the ceiling for a single resource kind.
func (l Limits) For(r Resource) int64 {
	switch r {
	case ResourceBoards:
		return l.MaxBoards
	case ResourceCards:
		return l.MaxCards
	case ResourceStorage:
		return l.MaxStorageBytes
	}
	return 0
}

// IsUnlimited reports whether a limit value means "no ceiling".
func IsUnlimited(limit int64) bool {
	return limit < 0
}

// ValidTier reports whether t is a known tier.
func ValidTier(t Tier) bool {
	_, ok := tierLimits[t]
	return ok
}
