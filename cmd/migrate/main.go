// Command migrate manages the feedwatch database schema outside the bot
// process, for deployments that run migrations as a separate step.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"feedwatch/migrations"
)

const usage = `Usage: migrate [-db path] <command>

Commands:
  up        apply all pending migrations
  up-one    apply the next pending migration
  down      roll back the last applied migration
  status    print per-migration status
  version   print the current schema version
  reset     roll back everything
`

func main() {
	dbPath := flag.String("db", defaultDBPath(), "path to the sqlite database")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}

	cmd := flag.Arg(0)
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		log.Fatalf("unknown command %q", cmd)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func defaultDBPath() string {
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		return v
	}
	return "./data/feedwatch.db"
}
