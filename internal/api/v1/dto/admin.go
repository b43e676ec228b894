package dto

// ReconcileResponseDTO summarizes a reconciliation sweep.
type ReconcileResponseDTO struct {
	Reconciled int `json:"reconciled"`
	Total      int `json:"total"`
}

// CleanupResponseDTO reports a stale-reservation sweep.
type CleanupResponseDTO struct {
	Swept int64 `json:"swept"`
}
