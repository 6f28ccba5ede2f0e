package rules

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema for the replacement_rules table. Precedence is explicit in the DB
// (unlike YAML, row order is not reliable); ties break on label for
// determinism.
const Schema = `
CREATE TABLE IF NOT EXISTS replacement_rules (
	label      TEXT PRIMARY KEY,
	pattern    TEXT NOT NULL,
	precedence INTEGER NOT NULL,
	status     TEXT DEFAULT 'active',
	updated_at INTEGER NOT NULL
);
`

// LoadDB reads all active rules from the database, ordered by precedence,
// and compiles them into a Registry.
func LoadDB(ctx context.Context, db *sql.DB) (*Registry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT label, pattern
		FROM replacement_rules
		WHERE status = 'active'
		ORDER BY precedence, label
	`)
	if err != nil {
		return nil, fmt.Errorf("rules: query: %w", err)
	}
	defer rows.Close()

	var specs []Spec
	for rows.Next() {
		var s Spec
		if err := rows.Scan(&s.Label, &s.Pattern); err != nil {
			return nil, fmt.Errorf("rules: scan row: %w", err)
		}
		specs = append(specs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rules: rows: %w", err)
	}

	return New(specs)
}
