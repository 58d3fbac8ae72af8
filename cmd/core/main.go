// Package main provides the FixDesk maintenance tool.
//
//	fixdesk-core version
//	fixdesk-core migrate  [-data dir]
//	fixdesk-core status   [-data dir]
//	fixdesk-core verify   [-password pw] archive.tar.gz
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/kimhsiao/fixdesk/backend/internal/backup"
	"github.com/kimhsiao/fixdesk/backend/internal/config"
	"github.com/kimhsiao/fixdesk/backend/internal/db"
	"github.com/kimhsiao/fixdesk/backend/internal/logging"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "version":
		fmt.Fprintf(stdout, "FixDesk Core v%s (schema %d)\n", Version, db.SchemaVersion)
		return 0
	case "migrate":
		err = migrate(ctx, args[1:], stdout)
	case "status":
		err = status(ctx, args[1:], stdout)
	case "verify":
		err = verify(args[1:], stdout)
	default:
		usage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: fixdesk-core <version|migrate|status|verify> [flags]")
}

// openDB loads configuration from args and opens the database without
// migrating it.
func openDB(args []string) (*db.DB, error) {
	cfg, err := config.Load(args)
	if err != nil {
		return nil, err
	}
	logging.Init(os.Stderr, cfg.LogLevel)
	return db.Open(cfg.DataDir)
}

func migrate(ctx context.Context, args []string, stdout io.Writer) error {
	database, err := openDB(args)
	if err != nil {
		return err
	}
	defer database.Close()

	m, err := db.NewMigrator(database.DB)
	if err != nil {
		return err
	}
	n, err := m.Up(ctx)
	if err != nil {
		return err
	}
	v, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "applied %d migration(s), schema version %d\n", n, v)
	return nil
}

func status(ctx context.Context, args []string, stdout io.Writer) error {
	database, err := openDB(args)
	if err != nil {
		return err
	}
	defer database.Close()

	m, err := db.NewMigrator(database.DB)
	if err != nil {
		return err
	}
	migrations, err := m.Migrations(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "database: %s\n", database.Path())
	for _, mg := range migrations {
		state := "pending"
		if mg.Applied {
			state = "applied " + mg.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(stdout, "%05d  %-24s %s\n", mg.Version, mg.Description, state)
	}
	return nil
}

func verify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	password := fs.String("password", "", "archive password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("verify takes exactly one archive path")
	}

	manifest, err := backup.Verify(fs.Arg(0), *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "ok: %d repairs, %d sms logs, %d images, exported %s\n",
		manifest.RepairCount, manifest.SmsLogCount, manifest.ImageCount,
		manifest.ExportedAt.Format("2006-01-02 15:04:05"))
	return nil
}
