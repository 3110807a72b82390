package notification

import "fmt"

// Report aggregates the outcome of one engine run for one church.
type Report struct {
	Processed int      `json:"processed"`
	Sent      int      `json:"sent"`
	Failed    int      `json:"failed"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
}

func (r *Report) Summary() string {
	return fmt.Sprintf("processed=%d sent=%d failed=%d skipped=%d errors=%d",
		r.Processed, r.Sent, r.Failed, r.Skipped, len(r.Errors))
}

// Stats aggregates ledger entries over a date window for operators.
type Stats struct {
	Total         int `json:"total"`
	Sent          int `json:"sent"`
	Failed        int `json:"failed"`
	Pending       int `json:"pending"`
	UniqueMembers int `json:"uniqueMembers"`
}
