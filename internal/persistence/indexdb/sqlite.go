package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"lavaforge.ai/internal/persistence/stationstore"
	"lavaforge.ai/internal/sim/catalogs"
	"lavaforge.ai/internal/sim/station"
	"lavaforge.ai/internal/sim/tuning"
)

// SQLiteStore is a stationstore.Store backed by a sqlite file. Put and Delete are buffered and
// applied in a single transaction on Flush.
type SQLiteStore struct {
	db *sql.DB

	mu      sync.Mutex
	pending map[string]*stationstore.Record // nil value = delete
	closed  bool
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, pending: map[string]*stationstore.Record{}}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS station_slots (
			key TEXT NOT NULL,
			slot INTEGER NOT NULL,
			item_json TEXT NOT NULL,
			PRIMARY KEY (key, slot)
		);`,
		`INSERT OR IGNORE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) Get(key string) (stationstore.Record, error) {
	s.mu.Lock()
	if rec, ok := s.pending[key]; ok {
		s.mu.Unlock()
		if rec == nil {
			return stationstore.Record{}, stationstore.ErrNotFound
		}
		return copyRecord(*rec), nil
	}
	s.mu.Unlock()

	rows, err := s.db.Query(`SELECT slot, item_json FROM station_slots WHERE key = ?`, key)
	if err != nil {
		return stationstore.Record{}, err
	}
	defer rows.Close()

	rec := stationstore.Record{Slots: map[int]station.Stack{}}
	found := false
	for rows.Next() {
		var (
			slot int
			raw  string
		)
		if err := rows.Scan(&slot, &raw); err != nil {
			return stationstore.Record{}, err
		}
		found = true
		var st station.Stack
		if err := json.Unmarshal([]byte(raw), &st); err != nil {
			// Undecodable rows read as absent slots.
			continue
		}
		rec.Slots[slot] = st
	}
	if err := rows.Err(); err != nil {
		return stationstore.Record{}, err
	}
	if !found {
		return stationstore.Record{}, stationstore.ErrNotFound
	}
	return rec, nil
}

func (s *SQLiteStore) Put(key string, rec stationstore.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("store closed")
	}
	c := copyRecord(rec)
	s.pending[key] = &c
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("store closed")
	}
	s.pending[key] = nil
	return nil
}

func (s *SQLiteStore) Keys() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT key FROM station_slots`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	set := map[string]bool{}
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		set[k] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for k, rec := range s.pending {
		set[k] = rec != nil && len(rec.Slots) > 0
	}
	s.mu.Unlock()

	keys := make([]string, 0, len(set))
	for k, ok := range set {
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Flush applies every buffered write in one transaction. On failure the writes stay buffered.
func (s *SQLiteStore) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	del, err := tx.Prepare(`DELETE FROM station_slots WHERE key = ?`)
	if err != nil {
		return err
	}
	defer del.Close()
	ins, err := tx.Prepare(`INSERT INTO station_slots(key,slot,item_json) VALUES(?,?,?)`)
	if err != nil {
		return err
	}
	defer ins.Close()

	for key, rec := range s.pending {
		if _, err := del.Exec(key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		if rec == nil {
			continue
		}
		for slot, st := range rec.Slots {
			b, err := json.Marshal(st)
			if err != nil {
				return err
			}
			if _, err := ins.Exec(key, slot, string(b)); err != nil {
				return fmt.Errorf("insert %s/%d: %w", key, slot, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	s.pending = map[string]*stationstore.Record{}
	return nil
}

func (s *SQLiteStore) Close() error {
	ferr := s.Flush()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return errors.Join(ferr, s.db.Close())
}

// UpsertCatalog records the catalog and tuning the server runs with, keyed by digest.
func (s *SQLiteStore) UpsertCatalog(cat *catalogs.Catalog, tune tuning.Tuning) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	rows := []kv{{name: "materials", digest: cat.Digest, json: cat.Compact()}}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CatalogDigest returns the digest recorded under name, or "" if none.
func (s *SQLiteStore) CatalogDigest(name string) (string, error) {
	var d string
	err := s.db.QueryRow(`SELECT digest FROM catalogs WHERE name = ?`, name).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return d, err
}

func copyRecord(rec stationstore.Record) stationstore.Record {
	out := stationstore.Record{Slots: make(map[int]station.Stack, len(rec.Slots))}
	for i, st := range rec.Slots {
		out.Slots[i] = st
	}
	return out
}
