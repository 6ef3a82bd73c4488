package guests

import (
	"fmt"
	"strconv"
	"time"

	"wedding-site/internal/models"
)

// Every transformation below returns a fresh slice and leaves its input
// untouched. A target that cannot be matched is not an error: the list may
// have changed since it was rendered, so the input comes back unchanged.

func clone(list []models.GuestEntry) []models.GuestEntry {
	out := make([]models.GuestEntry, len(list))
	for i, g := range list {
		g.ExtraGuestNames = append([]string(nil), g.ExtraGuestNames...)
		g.RejectedIndividuals = append([]string(nil), g.RejectedIndividuals...)
		out[i] = g
	}
	return out
}

// Append returns list with entry added at the end.
func Append(list []models.GuestEntry, entry models.GuestEntry) []models.GuestEntry {
	return append(clone(list), entry)
}

// Upsert applies an admin form. With a matchTimestamp the entry carrying that
// timestamp gets the form's fields merged in, keeping its identity and
// review state; without one a new entry stamped with now is appended.
func Upsert(list []models.GuestEntry, form Form, matchTimestamp string, now time.Time) ([]models.GuestEntry, error) {
	if err := form.Validate(); err != nil {
		return list, err
	}
	if matchTimestamp == "" {
		return Append(list, form.Entry(now)), nil
	}
	out := clone(list)
	for i := range out {
		if out[i].Timestamp == matchTimestamp {
			out[i] = form.apply(out[i])
			return out, nil
		}
	}
	return out, nil
}

// SetAdminStatus sets the review state of the entry matching target.
// AdminUndecided clears the state.
func SetAdminStatus(list []models.GuestEntry, target models.GuestEntry, status models.AdminStatus) ([]models.GuestEntry, error) {
	switch status {
	case models.AdminApproved, models.AdminRejected:
	case models.AdminUndecided, models.AdminPending:
		status = models.AdminPending
	default:
		return list, &ValidationError{Field: "adminStatus", Message: fmt.Sprintf("unknown status %q", status)}
	}
	out := clone(list)
	if i := FindMatch(out, target); i >= 0 {
		out[i].AdminStatus = status
	}
	return out, nil
}

// RejectIndividual moves name from the party's extra guests to its rejected
// individuals and lowers the head count by one, never below one.
func RejectIndividual(list []models.GuestEntry, target models.GuestEntry, name string) []models.GuestEntry {
	out := clone(list)
	i := FindMatch(out, target)
	if i < 0 {
		return out
	}
	g := &out[i]
	at := indexOf(g.ExtraGuestNames, name)
	if at < 0 {
		return out
	}
	g.ExtraGuestNames = append(g.ExtraGuestNames[:at], g.ExtraGuestNames[at+1:]...)
	g.RejectedIndividuals = append(g.RejectedIndividuals, name)
	g.Guests = strconv.Itoa(max(1, g.HeadCount()-1))
	return out
}

// RestoreIndividual reverses RejectIndividual: name goes back to the extra
// guests and the head count rises by exactly one.
func RestoreIndividual(list []models.GuestEntry, target models.GuestEntry, name string) []models.GuestEntry {
	out := clone(list)
	i := FindMatch(out, target)
	if i < 0 {
		return out
	}
	g := &out[i]
	at := indexOf(g.RejectedIndividuals, name)
	if at < 0 {
		return out
	}
	g.RejectedIndividuals = append(g.RejectedIndividuals[:at], g.RejectedIndividuals[at+1:]...)
	g.ExtraGuestNames = append(g.ExtraGuestNames, name)
	g.Guests = strconv.Itoa(g.HeadCount() + 1)
	return out
}

// Delete removes the entry matching target.
func Delete(list []models.GuestEntry, target models.GuestEntry) []models.GuestEntry {
	out := clone(list)
	if i := FindMatch(out, target); i >= 0 {
		return append(out[:i], out[i+1:]...)
	}
	return out
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
