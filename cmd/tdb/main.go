package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tobsdb/mousedb/internal/auth"
	"github.com/tobsdb/mousedb/internal/builder"
	"github.com/tobsdb/mousedb/internal/conn"
	"github.com/tobsdb/mousedb/pkg"
)

func main() {
	cfg, err := LoadConfig(os.Args[1:])
	if err != nil {
		pkg.FatalLog(err)
	}
	level, _ := pkg.ParseLogLevel(cfg.LogLevel)
	pkg.SetLogLevel(level)

	schema_data, err := os.ReadFile(cfg.SchemaPath)
	if err != nil {
		pkg.FatalLog("failed to read schema;", err)
	}
	schema, err := builder.NewSchemaFromString(string(schema_data))
	if err != nil {
		pkg.FatalLog("invalid schema;", err)
	}

	write_settings, err := builder.NewWriteSettings(cfg.DBPath, cfg.InMem, cfg.WriteInterval)
	if err != nil {
		pkg.FatalLog(err)
	}
	tdb, err := builder.OpenTobsDB(schema, write_settings)
	if err != nil {
		pkg.FatalLog("failed to open database;", err)
	}
	defer tdb.Close()

	users := auth.NewTdbUsers()
	if cfg.Username != "" {
		root, err := auth.NewUser(cfg.Username, cfg.Password, auth.TdbUserRoleAdmin)
		if err != nil {
			pkg.FatalLog(err)
		}
		users.Add(root)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := conn.NewServer(tdb, users).Listen(ctx, cfg.Port); err != nil {
		pkg.ErrorLog(err)
	}
}
