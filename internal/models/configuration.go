package models

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Configuration is the single shared document. It is both the site's
// content and the persisted record; there is no separate draft.
//
// Content fields are always written, empty or not. A missing field takes
// its default on a full merge, so a cleared field has to stay present.
type Configuration struct {
	BrideName    string `json:"brideName" bson:"brideName"`
	GroomName    string `json:"groomName" bson:"groomName"`
	WeddingDate  string `json:"weddingDate" bson:"weddingDate"`
	WeddingTime  string `json:"weddingTime" bson:"weddingTime"`
	RSVPDeadline string `json:"rsvpDeadline" bson:"rsvpDeadline"`
	Location     string `json:"location" bson:"location"`
	Address      string `json:"address" bson:"address"`
	MapURL       string `json:"mapUrl" bson:"mapUrl"`
	HeroImage    string `json:"heroImage" bson:"heroImage"`
	Hashtag      string `json:"hashtag" bson:"hashtag"`
	Theme        string `json:"theme" bson:"theme"`

	Story         []StoryEntry       `json:"story" bson:"story"`
	Timeline      []TimelineEntry    `json:"timeline" bson:"timeline"`
	Events        []Event            `json:"events" bson:"events"`
	Gallery       []string           `json:"gallery" bson:"gallery"`
	Colors        []string           `json:"colors" bson:"colors"`
	Entourage     []EntourageGroup   `json:"entourage" bson:"entourage"`
	GuestList     []GuestEntry       `json:"guestList" bson:"guestList"`
	Guestbook     []GuestbookMessage `json:"guestbook" bson:"guestbook"`
	SavedPalettes []Palette          `json:"savedPalettes" bson:"savedPalettes"`
	Notes         []Note             `json:"notes" bson:"notes"`
	SectionOrder  []string           `json:"sectionOrder" bson:"sectionOrder"`

	LastSaved string `json:"lastSaved,omitempty" bson:"lastSaved,omitempty"`
	SyncID    string `json:"syncId,omitempty" bson:"syncId,omitempty"`
}

type StoryEntry struct {
	Title string `json:"title" bson:"title"`
	Date  string `json:"date,omitempty" bson:"date,omitempty"`
	Text  string `json:"text" bson:"text"`
	Image string `json:"image,omitempty" bson:"image,omitempty"`
}

type TimelineEntry struct {
	Time  string `json:"time" bson:"time"`
	Title string `json:"title" bson:"title"`
	Icon  string `json:"icon,omitempty" bson:"icon,omitempty"`
}

type Event struct {
	Name     string `json:"name" bson:"name"`
	Date     string `json:"date,omitempty" bson:"date,omitempty"`
	Time     string `json:"time,omitempty" bson:"time,omitempty"`
	Location string `json:"location,omitempty" bson:"location,omitempty"`
	Address  string `json:"address,omitempty" bson:"address,omitempty"`
}

type EntourageGroup struct {
	Role    string   `json:"role" bson:"role"`
	Members []string `json:"members" bson:"members"`
}

type Palette struct {
	Name   string   `json:"name" bson:"name"`
	Colors []string `json:"colors" bson:"colors"`
}

type Note struct {
	ID        string `json:"id" bson:"id"`
	Text      string `json:"text" bson:"text"`
	Timestamp string `json:"timestamp" bson:"timestamp"`
	Done      bool   `json:"done,omitempty" bson:"done,omitempty"`
}

// Clone returns a deep copy so that callers can mutate it freely.
func (c *Configuration) Clone() *Configuration {
	if c == nil {
		return nil
	}
	out := &Configuration{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, impossible for same-type copies.
		panic(fmt.Sprintf("models: clone configuration: %v", err))
	}
	return out
}
