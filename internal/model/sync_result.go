package model

// SyncResult summarizes a single reconciliation run.
type SyncResult struct {
	RunID           int64            `json:"run_id"`
	TotalAlerts     int              `json:"total_alerts"`
	NewTickets      int              `json:"new_tickets"`
	ExistingTickets int              `json:"existing_tickets"`
	Skipped         int              `json:"skipped"`
	Errors          int              `json:"errors"`
	ByCategory      map[Category]int `json:"by_category"`
}

func (r SyncResult) Failed() bool {
	return r.Errors > 0
}
