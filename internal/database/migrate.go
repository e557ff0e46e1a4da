package database

import (
	"context"
	"fmt"
)

// migrations holds the schema as idempotent statements, executed in order at
// startup so the service can run against an empty database.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		id BIGSERIAL PRIMARY KEY,
		ein VARCHAR(9) NOT NULL UNIQUE,
		name TEXT NOT NULL,
		form_type VARCHAR(8) NOT NULL,
		tax_year INT NOT NULL,
		filing_date TIMESTAMPTZ,
		website TEXT,
		mission TEXT,
		current_revenue NUMERIC(15,2) NOT NULL DEFAULT 0,
		current_expenses NUMERIC(15,2) NOT NULL DEFAULT 0,
		current_assets NUMERIC(15,2) NOT NULL DEFAULT 0,
		current_employees INT NOT NULL DEFAULT 0,
		previous_revenue NUMERIC(15,2),
		previous_expenses NUMERIC(15,2),
		previous_assets NUMERIC(15,2),
		previous_employees INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS personnel (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		full_name TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT 'Unknown',
		compensation NUMERIC(15,2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS expense_categories (
		id BIGSERIAL PRIMARY KEY,
		organization_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		category VARCHAR(64) NOT NULL,
		amount NUMERIC(15,2) NOT NULL,
		tax_year INT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_organizations_name ON organizations (name)`,
	`CREATE INDEX IF NOT EXISTS idx_personnel_organization_id ON personnel (organization_id)`,
	`CREATE INDEX IF NOT EXISTS idx_expense_categories_organization_id ON expense_categories (organization_id)`,
}

// Migrate applies the schema. Every statement is IF NOT EXISTS, so running it
// on every boot is safe.
func (db *Database) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration: %w", err)
		}
	}
	return nil
}
