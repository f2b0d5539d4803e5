package main

import (
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/caarlos0/env/v11"
	"github.com/tobsdb/mousedb/pkg"
)

type Config struct {
	Port          int    `env:"PORT"           envDefault:"7085"`
	DBPath        string `env:"DB_PATH"`
	InMem         bool   `env:"IN_MEM"         envDefault:"false"`
	WriteInterval int    `env:"WRITE_INTERVAL" envDefault:"1000"` // ms
	LogLevel      string `env:"LOG_LEVEL"      envDefault:"error"`
	SchemaPath    string `env:"SCHEMA"         envDefault:"./schema.tdb"`
	Username      string `env:"USER"`
	Password      string `env:"PASS"`
}

// LoadConfig reads TDB_ prefixed environment variables, then lets args override them.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "TDB_"}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}
	if cfg.DBPath == "" {
		cwd, _ := os.Getwd()
		cfg.DBPath = path.Join(cwd, "db.tdb")
	}

	fs := flag.NewFlagSet("tdb", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "listening port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to save db data")
	fs.BoolVar(&cfg.InMem, "m", cfg.InMem, "don't persist db")
	fs.IntVar(&cfg.WriteInterval, "w", cfg.WriteInterval, "write interval in ms")
	fs.StringVar(&cfg.LogLevel, "log", cfg.LogLevel, "log level: none, error or debug")
	fs.StringVar(&cfg.SchemaPath, "schema", cfg.SchemaPath, "path to schema file")
	fs.StringVar(&cfg.Username, "u", cfg.Username, "root username")
	fs.StringVar(&cfg.Password, "p", cfg.Password, "root password")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.WriteInterval <= 0 {
		return nil, fmt.Errorf("invalid write interval: %d", cfg.WriteInterval)
	}
	if _, err := pkg.ParseLogLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return cfg, nil
}
