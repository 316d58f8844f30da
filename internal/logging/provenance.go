package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-transition
// LogTransition writes a transition entry to the transition_log table.
func LogTransition(db *sql.DB, entry TransitionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO transition_log (snapshot_id, old_mode, new_mode, vsp, trend, phase, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.SnapshotID),
		entry.OldMode,
		entry.NewMode,
		entry.VSP,
		entry.Trend,
		entry.Phase,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log transition: %w", err)
	}
	return nil
}

// #endregion log-transition

// #region recent
// RecentTransitions returns up to limit entries, newest first.
func RecentTransitions(db *sql.DB, limit int) ([]TransitionEntry, error) {
	rows, err := db.Query(
		`SELECT snapshot_id, old_mode, new_mode, vsp, trend, phase, reason, created_at
		 FROM transition_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []TransitionEntry
	for rows.Next() {
		var entry TransitionEntry
		var snapshotID, reason sql.NullString
		var createdStr string
		err := rows.Scan(&snapshotID, &entry.OldMode, &entry.NewMode, &entry.VSP,
			&entry.Trend, &entry.Phase, &reason, &createdStr)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		entry.SnapshotID = snapshotID.String
		entry.Reason = reason.String
		entry.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, entry)
	}
	return out, rows.Err()
}

// #endregion recent

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
