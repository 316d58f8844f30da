package logging

import "time"

// #region transition-entry
// TransitionEntry is a single row in the transition_log table: one mode
// evaluation as the controller loop observed it.
type TransitionEntry struct {
	SnapshotID string
	OldMode    string
	NewMode    string
	VSP        float64
	Trend      float64
	Phase      string
	Reason     string
	CreatedAt  time.Time
}

// Changed reports whether this entry records an actual mode change rather
// than a held mode.
func (e TransitionEntry) Changed() bool {
	return e.OldMode != e.NewMode
}

// #endregion transition-entry
