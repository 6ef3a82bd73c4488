// Package export renders the guest list for spreadsheets.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"wedding-site/internal/models"
)

// Header is the first CSV row.
var Header = []string{
	"Name", "Guest Choice", "Admin Status", "GuestsCount", "Email",
	"Message", "Rejected Individuals", "FollowUp Date", "Timestamp",
}

// PartyName renders the primary name followed by the named extras, for
// example "Anna (+ Tom, Lia)".
func PartyName(g models.GuestEntry) string {
	extras := g.NamedExtras()
	if len(extras) == 0 {
		return g.Name
	}
	return fmt.Sprintf("%s (+ %s)", g.Name, strings.Join(extras, ", "))
}

func adminStatus(s models.AdminStatus) string {
	if s == models.AdminPending {
		return "pending"
	}
	return string(s)
}

// WriteCSV writes list as CSV to w.
func WriteCSV(w io.Writer, list []models.GuestEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, g := range list {
		row := []string{
			PartyName(g),
			string(g.Attending),
			adminStatus(g.AdminStatus),
			fmt.Sprint(g.HeadCount()),
			g.Email,
			g.Message,
			strings.Join(g.RejectedIndividuals, ", "),
			g.FollowUpDate,
			g.Timestamp,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %q: %w", g.Name, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
