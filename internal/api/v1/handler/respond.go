package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/api/v1/dto"
	"github.com/Honey-Bagel/Milanote-Clone-sub004/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeQuotaExceeded renders the structured 403 body for a denied check. The
// client distinguishes this from a permissions 403 by upgrade_required.
func writeQuotaExceeded(w http.ResponseWriter, res *service.CheckResult) {
	writeJSON(w, http.StatusForbidden, dto.QuotaExceededDTO{
		Error:           res.Reason,
		UpgradeRequired: true,
		CurrentUsage:    res.CurrentUsage,
		Limits:          res.Limits,
	})
}
