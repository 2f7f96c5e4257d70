package config

import (
	"fmt"

	"github.com/namsral/flag"
)

const (
	DriverSqlite   = "sqlite3"
	DriverPostgres = "pgx"
)

type Config struct {
	DBDriver    string
	DBURI       string
	ListenAddr  string
	SecretKey   string
	LogLevel    string
	UndoLimit   int
	DisableFuzz bool
}

// Load reads flags from args. Every flag can also be set through an SRS_
// prefixed environment variable, or in the file named by -config.
func (c *Config) Load(args []string) error {
	fs := flag.NewFlagSetWithEnvPrefix("srs", "SRS", flag.ContinueOnError)

	fs.String(flag.DefaultConfigFlagname, "", "path to config file")
	fs.StringVar(&c.DBDriver, "db-driver", DriverSqlite, "database driver: sqlite3 or pgx")
	fs.StringVar(&c.DBURI, "db-uri", "collection.db", "database file (sqlite3) or connection URI (pgx)")
	fs.StringVar(&c.ListenAddr, "listen-addr", ":8190", "address the RPC server listens on")
	fs.StringVar(&c.SecretKey, "secret-key", "", "HMAC key for bearer tokens; empty disables auth")
	fs.StringVar(&c.LogLevel, "log-level", "info", "log level")
	fs.IntVar(&c.UndoLimit, "undo-limit", 30, "number of undo steps kept")
	fs.BoolVar(&c.DisableFuzz, "disable-fuzz", false, "turn off interval fuzz")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.DBDriver != DriverSqlite && c.DBDriver != DriverPostgres {
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	return nil
}
