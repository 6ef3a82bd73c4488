package guests

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"wedding-site/internal/models"
)

// ErrValidation is wrapped by every form validation failure.
var ErrValidation = errors.New("validation failed")

// ValidationError names the offending form field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Form is what a visitor or the admin fills in for one party.
type Form struct {
	Name            string
	Email           string
	Guests          int
	Attending       models.Attendance
	ExtraGuestNames []string
	Message         string
	FollowUpDate    string
}

// Validate checks the form without touching any state.
func (f Form) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if f.Attending != "" && !f.Attending.Valid() {
		return &ValidationError{Field: "attending", Message: fmt.Sprintf("unknown answer %q", f.Attending)}
	}
	count := f.Guests
	if count < 1 {
		count = 1
	}
	named := 0
	for _, n := range f.ExtraGuestNames {
		if strings.TrimSpace(n) != "" {
			named++
		}
	}
	if named != count-1 {
		return &ValidationError{
			Field:   "extraGuestNames",
			Message: fmt.Sprintf("%d guests need %d additional names, got %d", count, count-1, named),
		}
	}
	return nil
}

// Entry builds a new guest entry stamped with now. The form must be valid.
func (f Form) Entry(now time.Time) models.GuestEntry {
	g := f.apply(models.GuestEntry{})
	g.Timestamp = models.Timestamp(now)
	return g
}

// apply copies the form's fields onto g, leaving identity and admin review
// state untouched.
func (f Form) apply(g models.GuestEntry) models.GuestEntry {
	attending := f.Attending
	if attending == "" {
		attending = models.AttendingYes
	}
	extras := make([]string, 0, len(f.ExtraGuestNames))
	for _, n := range f.ExtraGuestNames {
		if n = strings.TrimSpace(n); n != "" {
			extras = append(extras, n)
		}
	}
	g.Name = strings.TrimSpace(f.Name)
	g.Email = strings.TrimSpace(f.Email)
	g.Guests = fmt.Sprint(1 + len(extras))
	g.Attending = attending
	g.ExtraGuestNames = extras
	g.Message = f.Message
	g.FollowUpDate = f.FollowUpDate
	return g
}

// FormOf returns the editable fields of g, for prefilling an edit form.
func FormOf(g models.GuestEntry) Form {
	return Form{
		Name:            g.Name,
		Email:           g.Email,
		Guests:          g.HeadCount(),
		Attending:       g.Attending,
		ExtraGuestNames: append([]string(nil), g.NamedExtras()...),
		Message:         g.Message,
		FollowUpDate:    g.FollowUpDate,
	}
}
