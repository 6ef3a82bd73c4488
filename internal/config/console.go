package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Console holds the weddingctl configuration, parsed from the WEDDINGCTL_
// prefix.
type Console struct {
	ServerURL   string        `envconfig:"SERVER_URL" default:"http://localhost:8080"`
	AdminEmail  string        `envconfig:"ADMIN_EMAIL" default:"admin@wedding.local"`
	TokenFile   string        `envconfig:"TOKEN_FILE" default:""`
	ReloadDelay time.Duration `envconfig:"RELOAD_DELAY" default:"1s"`
	Rollback    bool          `envconfig:"ROLLBACK" default:"false"`
}

// NewConsole parses the console configuration.
func NewConsole() (*Console, error) {
	var c Console
	if err := envconfig.Process("WEDDINGCTL", &c); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if c.TokenFile == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		c.TokenFile = filepath.Join(dir, "weddingctl", "sync.json")
	}
	return &c, nil
}
