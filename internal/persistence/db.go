// Package persistence provides SQLite-backed world state storage: dirty
// record batches during play, full reload at boot.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/hotschmoe/voidlanes/internal/fleet"
	"github.com/hotschmoe/voidlanes/internal/player"
	"github.com/hotschmoe/voidlanes/internal/policy"
	"github.com/hotschmoe/voidlanes/internal/universe"
)

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS players (
		id   TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS fleets (
		id    INTEGER PRIMARY KEY,
		owner TEXT NOT NULL,
		data  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sectors (
		q    INTEGER NOT NULL,
		r    INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (q, r)
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_fleets_owner ON fleets(owner);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// batch is one tick's worth of pre-serialized dirty rows. Serialization
// happens on the tick goroutine; only opaque rows cross to the writer.
type batch struct {
	tick          uint64
	players       []playerRow
	fleets        []fleetRow
	deletedFleets []uint64
	sectors       []sectorRow
}

type playerRow struct {
	ID   string
	Name string
	Data []byte
}

type fleetRow struct {
	ID    uint64
	Owner string
	Data  []byte
}

type sectorRow struct {
	Q, R int
	Data []byte
}

// writeBatch applies one batch in a single transaction.
func (db *DB) writeBatch(b batch) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, row := range b.players {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO players (id, name, data) VALUES (?, ?, ?)`,
			row.ID, row.Name, row.Data); err != nil {
			return fmt.Errorf("save player %s: %w", row.ID, err)
		}
	}
	for _, row := range b.fleets {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO fleets (id, owner, data) VALUES (?, ?, ?)`,
			row.ID, row.Owner, row.Data); err != nil {
			return fmt.Errorf("save fleet %d: %w", row.ID, err)
		}
	}
	for _, id := range b.deletedFleets {
		if _, err := tx.Exec(`DELETE FROM fleets WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete fleet %d: %w", id, err)
		}
	}
	for _, row := range b.sectors {
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO sectors (q, r, data) VALUES (?, ?, ?)`,
			row.Q, row.R, row.Data); err != nil {
			return fmt.Errorf("save sector (%d,%d): %w", row.Q, row.R, err)
		}
	}
	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('last_tick', ?)`,
		strconv.FormatUint(b.tick, 10)); err != nil {
		return fmt.Errorf("save tick: %w", err)
	}

	return tx.Commit()
}

// LoadPlayers restores every player record.
func (db *DB) LoadPlayers() ([]*player.Player, error) {
	rows, err := db.conn.Query(`SELECT data FROM players`)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	defer rows.Close()

	var out []*player.Player
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		p := &player.Player{}
		if err := json.Unmarshal(data, p); err != nil {
			return nil, fmt.Errorf("decode player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// LoadFleets restores every fleet record. Standing orders are recompiled on
// the way in; rules that no longer parse stay listed but inert.
func (db *DB) LoadFleets() ([]*fleet.Fleet, error) {
	rows, err := db.conn.Query(`SELECT data FROM fleets`)
	if err != nil {
		return nil, fmt.Errorf("load fleets: %w", err)
	}
	defer rows.Close()

	var out []*fleet.Fleet
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		f := &fleet.Fleet{}
		if err := json.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("decode fleet: %w", err)
		}
		f.Rules, _ = policy.CompileRules(f.Rules)
		out = append(out, f)
	}
	return out, rows.Err()
}

// LoadSectors restores every persisted (modified) sector.
func (db *DB) LoadSectors() ([]*universe.Sector, error) {
	rows, err := db.conn.Query(`SELECT data FROM sectors`)
	if err != nil {
		return nil, fmt.Errorf("load sectors: %w", err)
	}
	defer rows.Close()

	var out []*universe.Sector
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		s := &universe.Sector{}
		if err := json.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("decode sector: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// LastTick returns the persisted tick counter, or zero on a fresh database.
func (db *DB) LastTick() (uint64, error) {
	var value string
	err := db.conn.Get(&value, `SELECT value FROM meta WHERE key = 'last_tick'`)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load tick: %w", err)
	}
	return strconv.ParseUint(value, 10, 64)
}

// HasWorldState reports whether the database holds a previous run.
func (db *DB) HasWorldState() bool {
	var n int
	if err := db.conn.Get(&n, `SELECT COUNT(*) FROM meta WHERE key = 'last_tick'`); err != nil {
		return false
	}
	return n > 0
}
