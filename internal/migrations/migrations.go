// Package migrations applies the chat keyspace schema. Each read pattern is
// served by its own denormalized table; the schema here is the contract the
// repository's statements are written against.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/cassandra"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed cql/*.cql
var schemaFS embed.FS

// Up applies all pending migrations. url is a cassandra:// URL, e.g.
// cassandra://localhost:9042/nosql_chat?x-multi-statement=true.
func Up(url string) error {
	src, err := iofs.New(schemaFS, "cql")
	if err != nil {
		return fmt.Errorf("load embedded schema: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("open migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
