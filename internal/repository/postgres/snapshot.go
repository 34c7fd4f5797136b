package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// Load retrieves the snapshot stored under the configured name
func (p *PostgresDB) Load(ctx context.Context) (*db.Snapshot, error) {
	query := `
	SELECT payload
	FROM app_snapshots
	WHERE name = $1
	`

	var payload []byte
	err := p.conn.QueryRowContext(ctx, query, p.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving snapshot: %w", err)
	}

	var snapshot db.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, fmt.Errorf("error decoding snapshot: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"name":          p.name,
		"conversations": len(snapshot.Conversations),
	}).Debug("Loaded snapshot")

	return &snapshot, nil
}

// Save upserts the whole snapshot under the configured name
func (p *PostgresDB) Save(ctx context.Context, snapshot *db.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("error encoding snapshot: %w", err)
	}

	query := `
	INSERT INTO app_snapshots (name, payload, updated_at)
	VALUES ($1, $2, CURRENT_TIMESTAMP)
	ON CONFLICT (name) DO UPDATE
	SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`

	if _, err := p.conn.ExecContext(ctx, query, p.name, payload); err != nil {
		return fmt.Errorf("error saving snapshot: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"name":          p.name,
		"conversations": len(snapshot.Conversations),
		"bytes":         len(payload),
	}).Debug("Saved snapshot")

	return nil
}
