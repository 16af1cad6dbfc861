package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"roomsense/internal/domain"
	"roomsense/internal/repository"

	_ "modernc.org/sqlite"
)

// Repository implements repository.Repository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sightings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		association_point TEXT NOT NULL DEFAULT '',
		person TEXT NOT NULL DEFAULT '',
		room TEXT NOT NULL DEFAULT '',
		signal_strength INTEGER NOT NULL DEFAULT 0,
		source TEXT NOT NULL,
		seen_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS mapping_overrides (
		kind TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, key)
	);

	CREATE INDEX IF NOT EXISTS idx_sightings_device ON sightings(device_id, seen_at);
	CREATE INDEX IF NOT EXISTS idx_sightings_seen ON sightings(seen_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// RecordSightings appends one sighting per device in the snapshot
func (r *Repository) RecordSightings(ctx context.Context, snap *domain.DeviceSnapshot) error {
	if snap == nil || len(snap.Devices) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sightings (device_id, association_point, person, room, signal_strength, source, seen_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range snap.Devices {
		if _, err := stmt.ExecContext(ctx, d.ID, d.AssociationPoint, d.Person, d.Room,
			d.SignalStrength, snap.Source, snap.TakenAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert sighting for %s: %w", d.ID, err)
		}
	}

	return tx.Commit()
}

// ListSightings returns sightings newest first, optionally filtered by device
func (r *Repository) ListSightings(ctx context.Context, deviceID string, since time.Time, limit int) ([]repository.Sighting, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, device_id, association_point, person, room, signal_strength, source, seen_at
		FROM sightings
		WHERE seen_at >= ?
	`
	args := []any{since.UTC()}
	if deviceID != "" {
		query += " AND device_id = ?"
		args = append(args, deviceID)
	}
	query += " ORDER BY seen_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sightings: %w", err)
	}
	defer rows.Close()

	var sightings []repository.Sighting
	for rows.Next() {
		var s repository.Sighting
		if err := rows.Scan(&s.ID, &s.DeviceID, &s.AssociationPoint, &s.Person, &s.Room,
			&s.SignalStrength, &s.Source, &s.SeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan sighting: %w", err)
		}
		sightings = append(sightings, s)
	}

	return sightings, rows.Err()
}

// PruneSightings deletes sightings older than the cutoff
func (r *Repository) PruneSightings(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sightings WHERE seen_at < ?`, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune sightings: %w", err)
	}
	return res.RowsAffected()
}

// SaveMapping stores or replaces one mapping override
func (r *Repository) SaveMapping(ctx context.Context, kind repository.MappingKind, key, value string) error {
	if key == "" || value == "" {
		return fmt.Errorf("mapping key and value required")
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mapping_overrides (kind, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(kind, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, string(kind), key, value)
	if err != nil {
		return fmt.Errorf("failed to save mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes one mapping override
func (r *Repository) DeleteMapping(ctx context.Context, kind repository.MappingKind, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM mapping_overrides WHERE kind = ? AND key = ?`,
		string(kind), key)
	if err != nil {
		return fmt.Errorf("failed to delete mapping: %w", err)
	}
	return nil
}

// ListMappings returns all overrides of one kind
func (r *Repository) ListMappings(ctx context.Context, kind repository.MappingKind) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM mapping_overrides WHERE kind = ?`,
		string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to query mappings: %w", err)
	}
	defer rows.Close()

	mappings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan mapping: %w", err)
		}
		mappings[key] = value
	}

	return mappings, rows.Err()
}

// Close releases the database handle
func (r *Repository) Close() error {
	return r.db.Close()
}
