package main

import (
	"document-review/internal/config"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/url"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dir := flag.String("dir", "file://./migrations", "directory with migrations")
	dsn := flag.String("dsn", "", "database connection string, defaults to the configured database")
	action := flag.String("action", "up", "migration action: up, down")

	flag.Parse()

	if *dsn == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatal(err)
		}
		*dsn = migrationURL(cfg.Database)
	}

	m, err := migrate.New(*dir, *dsn)
	if err != nil {
		log.Fatalf("failed to create migrate instance: %v", err)
	}
	defer m.Close()

	switch *action {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		log.Fatalf("unknown action: %s", *action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	fmt.Println("migration done successfully")
}

func migrationURL(c config.DatabaseConfig) string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
