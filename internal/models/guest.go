package models

import (
	"strconv"
	"strings"
	"time"
)

// GuestEntry represents one RSVP submission
type GuestEntry struct {
	Name                string      `json:"name" bson:"name"`
	Email               string      `json:"email,omitempty" bson:"email,omitempty"`
	Guests              string      `json:"guests" bson:"guests"`
	Attending           Attendance  `json:"attending" bson:"attending"`
	ExtraGuestNames     []string    `json:"extraGuestNames,omitempty" bson:"extraGuestNames,omitempty"`
	Message             string      `json:"message,omitempty" bson:"message,omitempty"`
	Timestamp           string      `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
	AdminStatus         AdminStatus `json:"adminStatus,omitempty" bson:"adminStatus,omitempty"`
	RejectedIndividuals []string    `json:"rejectedIndividuals,omitempty" bson:"rejectedIndividuals,omitempty"`
	FollowUpDate        string      `json:"followUpDate,omitempty" bson:"followUpDate,omitempty"`
}

// Attendance is the guest's own answer to the invitation
type Attendance string

const (
	AttendingYes       Attendance = "yes"
	AttendingNo        Attendance = "no"
	AttendingUndecided Attendance = "undecided"
)

// Valid reports whether a is one of the known answers.
func (a Attendance) Valid() bool {
	switch a {
	case AttendingYes, AttendingNo, AttendingUndecided:
		return true
	}
	return false
}

// AdminStatus is the admin review state, independent of Attendance.
// The zero value means the entry has not been reviewed.
type AdminStatus string

const (
	AdminPending  AdminStatus = ""
	AdminApproved AdminStatus = "approved"
	AdminRejected AdminStatus = "rejected"

	// AdminUndecided is accepted as input only; storing it clears the status.
	AdminUndecided AdminStatus = "undecided"
)

// HeadCount parses the string-encoded guests field. Anything unparsable or
// below one counts as a single guest.
func (g GuestEntry) HeadCount() int {
	n, err := strconv.Atoi(strings.TrimSpace(g.Guests))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// NamedExtras returns the non-empty extra guest names in order.
func (g GuestEntry) NamedExtras() []string {
	names := make([]string, 0, len(g.ExtraGuestNames))
	for _, n := range g.ExtraGuestNames {
		if strings.TrimSpace(n) != "" {
			names = append(names, n)
		}
	}
	return names
}

// ISOLayout mirrors the millisecond UTC layout used for every timestamp in
// the shared document.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// Timestamp formats t in ISOLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}
