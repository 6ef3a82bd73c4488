package guests

import "wedding-site/internal/models"

// Stats is derived from the guest list on demand and never persisted.
type Stats struct {
	Submissions    int `json:"submissions"`
	TotalHeads     int `json:"totalHeads"`
	ApprovedHeads  int `json:"approvedHeads"`
	PendingHeads   int `json:"pendingHeads"`
	DeclinedHeads  int `json:"declinedHeads"`
	UndecidedHeads int `json:"undecidedHeads"`
	RejectedHeads  int `json:"rejectedHeads"`
}

// ComputeStats aggregates list. A rejected individual still counts toward
// the total, since they were a head before the admin removed them.
func ComputeStats(list []models.GuestEntry) Stats {
	s := Stats{Submissions: len(list)}
	for _, g := range list {
		heads := g.HeadCount()
		s.TotalHeads += heads + len(g.RejectedIndividuals)
		s.RejectedHeads += len(g.RejectedIndividuals)

		switch {
		case g.AdminStatus == models.AdminRejected:
			s.RejectedHeads += heads
		case g.Attending == models.AttendingNo:
			s.DeclinedHeads += heads
		case g.Attending == models.AttendingYes && g.AdminStatus == models.AdminApproved:
			s.ApprovedHeads += heads
		case g.Attending == models.AttendingYes && g.AdminStatus == models.AdminPending:
			s.PendingHeads += heads
		case g.Attending == models.AttendingUndecided:
			s.UndecidedHeads += heads
		}
	}
	return s
}
