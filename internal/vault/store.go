package vault

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/cognitive-rhythm/go-controller/internal/packet"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS packet_snapshots (
	snapshot_id  TEXT PRIMARY KEY,
	instance_id  TEXT NOT NULL,
	taken_at     TEXT NOT NULL,
	mode         TEXT NOT NULL,
	portable     BLOB NOT NULL,
	kv_digest    TEXT NOT NULL,
	wm_digest    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS active_packet (
	id           INTEGER PRIMARY KEY CHECK (id = 1),
	snapshot_id  TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES packet_snapshots(snapshot_id)
);

CREATE TABLE IF NOT EXISTS transition_log (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	snapshot_id  TEXT,
	old_mode     TEXT NOT NULL,
	new_mode     TEXT NOT NULL,
	vsp          REAL NOT NULL,
	trend        REAL NOT NULL,
	phase        TEXT NOT NULL,
	reason       TEXT,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (snapshot_id) REFERENCES packet_snapshots(snapshot_id)
);
`

// #endregion schema

// #region store-struct
// Store persists packet snapshots in SQLite. Every snapshot is the full
// portable encoding; nothing is persisted partially.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region save
// SaveSnapshot persists the packet's portable encoding and moves the active
// pointer to it atomically. A packet failing its own checksum verification
// is refused outright.
func (s *Store) SaveSnapshot(p *packet.StatePacket) (string, error) {
	if !p.VerifyChecksums() {
		return "", fmt.Errorf("save snapshot: packet fails checksum verification")
	}
	blob, err := p.Marshal()
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()
	sums := p.Checksums()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO packet_snapshots (snapshot_id, instance_id, taken_at, mode, portable, kv_digest, wm_digest)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.InstanceID(), now.Format(time.RFC3339Nano), p.Mode().String(), blob, sums.KV, sums.WM,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_packet (id, snapshot_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET snapshot_id = excluded.snapshot_id`,
		id,
	)
	if err != nil {
		return "", fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// #endregion save

// #region load
// LoadCurrent reads and reconstructs the active packet.
func (s *Store) LoadCurrent() (*packet.StatePacket, error) {
	var snapshotID string
	err := s.db.QueryRow(`SELECT snapshot_id FROM active_packet WHERE id = 1`).Scan(&snapshotID)
	if err != nil {
		return nil, fmt.Errorf("get active: %w", err)
	}
	return s.LoadSnapshot(snapshotID)
}

// LoadSnapshot reconstructs a stored packet. Integrity and validation
// failures from the packet layer pass through unmodified so callers can
// match on them.
func (s *Store) LoadSnapshot(id string) (*packet.StatePacket, error) {
	var blob []byte
	err := s.db.QueryRow(
		`SELECT portable FROM packet_snapshots WHERE snapshot_id = ?`, id,
	).Scan(&blob)
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", id, err)
	}
	return packet.Unmarshal(blob)
}

// #endregion load

// #region history
// SnapshotInfo summarizes a stored snapshot without decoding the blob.
type SnapshotInfo struct {
	SnapshotID string
	InstanceID string
	TakenAt    time.Time
	Mode       string
	KVDigest   string
	WMDigest   string
}

// History returns up to limit snapshots, newest first.
func (s *Store) History(limit int) ([]SnapshotInfo, error) {
	rows, err := s.db.Query(
		`SELECT snapshot_id, instance_id, taken_at, mode, kv_digest, wm_digest
		 FROM packet_snapshots ORDER BY taken_at DESC, snapshot_id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var takenStr string
		if err := rows.Scan(&info.SnapshotID, &info.InstanceID, &takenStr, &info.Mode, &info.KVDigest, &info.WMDigest); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		info.TakenAt, _ = time.Parse(time.RFC3339Nano, takenStr)
		out = append(out, info)
	}
	return out, rows.Err()
}

// #endregion history
