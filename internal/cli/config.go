package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mcoot/guessgame/internal/dependencies/random"
	"github.com/mcoot/guessgame/internal/model"
)

const sessionIDLength = 32

// Config holds CLI configuration
type Config struct {
	EnvFile     string
	ServerURL   string
	SessionFile string
	Output      string
	Verbose     bool
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		EnvFile:     getEnvOrDefault("GUESSGAME_ENV_FILE", ".env"),
		ServerURL:   getEnvOrDefault("GUESSGAME_SERVER", "http://localhost:8080"),
		SessionFile: getEnvOrDefault("GUESSGAME_SESSION_FILE", defaultSessionFile()),
		Output:      "text",
		Verbose:     false,
	}
}

// LoadSession returns the session id stored in the session file,
// creating and saving a new one if there is none yet
func (c *Config) LoadSession(rnd random.Random) (model.SessionID, error) {
	data, err := os.ReadFile(c.SessionFile)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}

	if sid := strings.TrimSpace(string(data)); sid != "" {
		return model.SessionID(sid), nil
	}

	sid := model.SessionID(rnd.String(sessionIDLength, random.Alphanumeric))
	if err := c.SaveSession(sid); err != nil {
		return "", err
	}
	return sid, nil
}

// SaveSession saves the session id to the session file
func (c *Config) SaveSession(sid model.SessionID) error {
	dir := filepath.Dir(c.SessionFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	return os.WriteFile(c.SessionFile, []byte(sid), 0600)
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".guessgame/session"
	}
	return filepath.Join(home, ".guessgame", "session")
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
