// Package database provides schema creation
package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS elections (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'DRAFT',
		start_time TIMESTAMP,
		end_time TIMESTAMP,
		started_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS voters (
		id TEXT PRIMARY KEY,
		election_id TEXT NOT NULL,
		email TEXT NOT NULL COLLATE NOCASE,
		unique_id TEXT NOT NULL COLLATE NOCASE,
		name TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'PENDING',
		vote_weight INTEGER NOT NULL DEFAULT 1,
		has_voted INTEGER NOT NULL DEFAULT 0,
		stored_key TEXT NOT NULL DEFAULT '',
		key_hash TEXT NOT NULL DEFAULT '',
		verification_token TEXT NOT NULL DEFAULT '',
		verification_expires_at TIMESTAMP,
		verified_at TIMESTAMP,
		key_email_sent INTEGER NOT NULL DEFAULT 0,
		key_email_sent_at TIMESTAMP,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		recipient TEXT NOT NULL,
		sender TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'INFO',
		priority TEXT NOT NULL DEFAULT 'MEDIUM',
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		action_url TEXT NOT NULL DEFAULT '',
		action_text TEXT NOT NULL DEFAULT '',
		metadata TEXT NOT NULL DEFAULT '{}',
		read INTEGER NOT NULL DEFAULT 0,
		read_at TIMESTAMP,
		delivered INTEGER NOT NULL DEFAULT 0,
		delivered_at TIMESTAMP,
		delivery_method TEXT NOT NULL DEFAULT 'IN_APP',
		scheduled_for TIMESTAMP,
		expires_at TIMESTAMP,
		created_at TIMESTAMP NOT NULL
	)`,
}

var indexes = []string{
	// Duplicate voters are rejected here, not by pre-checking inserts.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_voters_election_email ON voters(election_id, email)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_voters_election_unique_id ON voters(election_id, unique_id)`,
	`CREATE INDEX IF NOT EXISTS idx_voters_unique_id ON voters(unique_id)`,
	`CREATE INDEX IF NOT EXISTS idx_voters_election_status ON voters(election_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications(recipient, read, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_scheduled ON notifications(scheduled_for, delivered)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_expires ON notifications(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_elections_status_start ON elections(status, start_time)`,
	`CREATE INDEX IF NOT EXISTS idx_elections_status_end ON elections(status, end_time)`,
}
