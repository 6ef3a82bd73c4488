package guests

import "wedding-site/internal/models"

// Key identifies a guest entry after the list has been round-tripped
// through the store. Array elements carry no server-assigned ids, so the
// creation timestamp is the preferred key and (name, email) the fallback.
type Key struct {
	Timestamp string
	Name      string
	Email     string
}

// KeyOf returns the identity key of g.
func KeyOf(g models.GuestEntry) Key {
	return Key{Timestamp: g.Timestamp, Name: g.Name, Email: g.Email}
}

// Matches reports whether candidate is the entry k identifies. Timestamps
// decide when both sides have one; otherwise name and email must both match.
func (k Key) Matches(candidate models.GuestEntry) bool {
	if k.Timestamp != "" && candidate.Timestamp != "" {
		return k.Timestamp == candidate.Timestamp
	}
	return k.Name == candidate.Name && k.Email == candidate.Email
}

// FindMatch returns the index of the first entry in list matching target,
// or -1.
func FindMatch(list []models.GuestEntry, target models.GuestEntry) int {
	k := KeyOf(target)
	for i := range list {
		if k.Matches(list[i]) {
			return i
		}
	}
	return -1
}
