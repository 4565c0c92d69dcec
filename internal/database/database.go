package database

import (
	"database/sql"
	"fmt"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// InitDB opens the database and runs any pending migrations. For local-only
// databases dbPath is a filename (or :memory:); with a primaryUrl set, the
// remote Turso database is used instead. The returned teardown closes the
// connection.
func InitDB(dbPath string, primaryUrl string, authToken string, migrationsDir string) (*sql.DB, func(), error) {
	var db *sql.DB
	var err error

	if primaryUrl == "" {
		log.Info("Initializing local SQLite database", "path", dbPath)
		db, err = sql.Open("sqlite3", dbPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open local database: %w", err)
		}
		// A single connection serializes writes and keeps :memory:
		// databases on one shared instance.
		db.SetMaxOpenConns(1)
	} else {
		log.Info("Initializing Turso database", "url", primaryUrl)
		db, err = sql.Open("libsql", primaryUrl+"?authToken="+authToken)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open db %s: %w", primaryUrl, err)
		}
	}

	if err := migrate(db, migrationsDir); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	teardown := func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}
	return db, teardown, nil
}

func migrate(db *sql.DB, migrationsDir string) error {
	// Foreign key support is not enabled by default in SQLite
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		log.Error("Error enabling foreign keys:", "error", err)
		return err
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return err
	}
	log.Info("Database initialized successfully")
	return nil
}
