package models

// AnonymousName is stored when a visitor leaves the name empty.
const AnonymousName = "Anonymous"

// GuestbookMessage is a visitor post. Reactions only ever increase and the
// reply is last-write-wins by the admin.
type GuestbookMessage struct {
	ID        string         `json:"id" bson:"id"`
	Name      string         `json:"name" bson:"name"`
	Message   string         `json:"message" bson:"message"`
	Timestamp string         `json:"timestamp" bson:"timestamp"`
	Reactions map[string]int `json:"reactions,omitempty" bson:"reactions,omitempty"`
	Reply     string         `json:"reply,omitempty" bson:"reply,omitempty"`
}

// FindGuestbookMessage returns the index of the message with id, or -1.
func FindGuestbookMessage(messages []GuestbookMessage, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}
