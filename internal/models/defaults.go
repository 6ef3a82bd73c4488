package models

// DefaultSectionOrder is the section order of a freshly created site.
var DefaultSectionOrder = []string{
	"hero", "countdown", "story", "events", "timeline", "entourage",
	"gallery", "rsvp", "guestbook",
}

// DefaultColors is the palette of a freshly created site.
var DefaultColors = []string{"#f8f4ef", "#c9a96e", "#7b8f7a", "#3e3e3e"}

// Seed holds the couple-specific values a deployment starts from.
type Seed struct {
	BrideName   string
	GroomName   string
	WeddingDate string
	Location    string
}

// DefaultConfiguration returns the built-in defaults every merge starts from.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		Theme:        "classic",
		Colors:       append([]string(nil), DefaultColors...),
		SectionOrder: append([]string(nil), DefaultSectionOrder...),
	}
}

// SeededConfiguration returns the defaults with the deployment's couple
// details filled in. Empty seed values keep the defaults.
func SeededConfiguration(s Seed) *Configuration {
	cfg := DefaultConfiguration()
	cfg.BrideName = s.BrideName
	cfg.GroomName = s.GroomName
	cfg.WeddingDate = s.WeddingDate
	cfg.Location = s.Location
	return cfg
}
