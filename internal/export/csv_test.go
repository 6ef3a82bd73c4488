package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-site/internal/models"
)

func TestWriteCSV(t *testing.T) {
	list := []models.GuestEntry{
		{
			Name: "Anna, B.", Email: "anna@example.com", Guests: "2", Attending: models.AttendingYes,
			ExtraGuestNames: []string{"Tom", ""}, Message: "See you \"soon\"",
			RejectedIndividuals: []string{"Lia"}, AdminStatus: models.AdminApproved,
			Timestamp: "2026-01-01T10:00:00.000Z",
		},
		{Name: "Walk In", Guests: "x", Attending: models.AttendingNo},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, list))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{
		"Anna, B. (+ Tom)", "yes", "approved", "2", "anna@example.com",
		"See you \"soon\"", "Lia", "", "2026-01-01T10:00:00.000Z",
	}, rows[1])
	assert.Equal(t, "pending", rows[2][2])
	assert.Equal(t, "1", rows[2][3])
}
