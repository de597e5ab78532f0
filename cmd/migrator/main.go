package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"hub-bot/internal/config"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var (
	flags = flag.NewFlagSet("migrator", flag.ExitOnError)
	dir   = flags.String("dir", "migrations", "directory with migration files")
	table = flags.String("table", "schema_migrations", "goose version table")
)

func main() {
	flags.Usage = usage
	flags.Parse(os.Args[1:])
	args := flags.Args()

	if len(args) < 1 {
		flags.Usage()
		os.Exit(1)
	}

	_ = godotenv.Load()

	// Migrations only need the database section, so bot tokens are not
	// validated here.
	var envCfg struct {
		Database config.DatabaseConfig `env-prefix:"DB_"`
	}
	if err := cleanenv.ReadEnv(&envCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read database config: %v\n", err)
		os.Exit(1)
	}
	dbCfg := envCfg.Database

	ctx := context.Background()

	db, err := sql.Open("pgx", dbCfg.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database at %s:%d: %v\n", dbCfg.Host, dbCfg.Port, err)
		os.Exit(1)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set dialect: %v\n", err)
		os.Exit(1)
	}
	goose.SetTableName(*table)

	if err := goose.RunContext(ctx, args[0], db, *dir, args[1:]...); err != nil {
		fmt.Fprintf(os.Stderr, "Migration %s failed: %v\n", args[0], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(usagePrefix)
	flags.PrintDefaults()
	fmt.Println(usageCommands)
}

var (
	usagePrefix = `Usage: migrator [OPTIONS] COMMAND

Connection settings are read from the environment (or .env):
DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME, DB_SSL_MODE

Options:
`

	usageCommands = `
Commands:
    up                   Apply all pending migrations
    up-by-one            Apply the next migration
    up-to VERSION        Migrate up to VERSION
    down                 Roll back the latest migration
    down-to VERSION      Roll back to VERSION
    redo                 Re-run the latest migration
    reset                Roll back all migrations
    status               Print migration status
    version              Print the current version
`
)
