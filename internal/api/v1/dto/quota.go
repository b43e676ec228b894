package dto

import (
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/quota"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"
)

// QuotaExceededDTO is the body of every 403 produced by a limit denial.
// upgrade_required is always true: the only way past a tier limit is a
// higher tier.
type QuotaExceededDTO struct {
	Error           string        `json:"error"`
	UpgradeRequired bool          `json:"upgrade_required"`
	CurrentUsage    service.Usage `json:"current_usage"`
	Limits          quota.Limits  `json:"limits"`
}
