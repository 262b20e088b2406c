// Package keystore persists column encryption keys in a local SQLite
// database.
package keystore

import (
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/loochek/pgproxy/pkg/tde"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrNoActiveKey = errors.New("no active key")
)

const keySize = 32

// Key is one stored encryption key. Material never leaves the proxy process;
// the fingerprint identifies the key in logs and the admin API.
type Key struct {
	ID          uint32
	Fingerprint string
	Material    []byte
	CreatedAt   time.Time
	Retired     bool
}

// Store manages the key database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the key database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open key database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		fingerprint TEXT NOT NULL UNIQUE,
		material BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		retired INTEGER NOT NULL DEFAULT 0
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateKey generates fresh key material and stores it as the newest key.
func (s *Store) CreateKey() (*Key, error) {
	material := make([]byte, keySize)
	if _, err := rand.Read(material); err != nil {
		return nil, fmt.Errorf("generate key material: %w", err)
	}

	key := &Key{
		Fingerprint: tde.Fingerprint(material),
		Material:    material,
		CreatedAt:   time.Now().UTC(),
	}

	result, err := s.db.Exec(
		`INSERT INTO keys (fingerprint, material, created_at) VALUES (?, ?, ?)`,
		key.Fingerprint, key.Material, key.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read key id: %w", err)
	}
	key.ID = uint32(id)
	return key, nil
}

// ActiveKey returns the newest non-retired key, the one new values are
// sealed under.
func (s *Store) ActiveKey() (*Key, error) {
	row := s.db.QueryRow(
		`SELECT id, fingerprint, material, created_at, retired
		 FROM keys WHERE retired = 0 ORDER BY id DESC LIMIT 1`,
	)
	key, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveKey
	}
	return key, err
}

// KeyByID returns the key with the given id, retired or not.
func (s *Store) KeyByID(id uint32) (*Key, error) {
	row := s.db.QueryRow(
		`SELECT id, fingerprint, material, created_at, retired FROM keys WHERE id = ?`, id,
	)
	key, err := scanKey(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return key, err
}

// Keys returns all stored keys, newest first.
func (s *Store) Keys() ([]*Key, error) {
	rows, err := s.db.Query(
		`SELECT id, fingerprint, material, created_at, retired FROM keys ORDER BY id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []*Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RetireKey marks a key retired. Retired keys still open old envelopes but
// are never used to seal new values.
func (s *Store) RetireKey(id uint32) error {
	result, err := s.db.Exec(`UPDATE keys SET retired = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("retire key: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("retire key: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*Key, error) {
	var (
		key       Key
		createdAt int64
	)
	if err := row.Scan(&key.ID, &key.Fingerprint, &key.Material, &createdAt, &key.Retired); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan key: %w", err)
	}
	key.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &key, nil
}
