package sqlview

import (
	"fmt"
	"net"
	"os"
	"strconv"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 5050
)

// Config holds everything needed to serve one database.
type Config struct {
	DatabasePath string
	Host         string
	Port         int
	Debug        bool
	CORS         bool
	HistoryFile  string
}

func DefaultConfig() Config {
	return Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		CORS:        true,
		HistoryFile: "/tmp/sqlview_history",
	}
}

func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks that the database file exists. It is only checked once,
// at startup.
func (c Config) Validate() error {
	if c.DatabasePath == "" {
		return ErrNoDatabase
	}

	info, err := os.Stat(c.DatabasePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w at %s", ErrDatabaseNotFound, c.DatabasePath)
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a database file", c.DatabasePath)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}

	return nil
}
