package packet

import "fmt"

// #region validation-error
// ValidationError reports a field that violates the packet's data model:
// unknown mode or item type, out-of-range weight, wrong vector dimension.
// Invalid input is always rejected, never silently corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// #endregion validation-error

// #region integrity-error
// IntegrityError reports that a loaded packet's stored checksums do not
// match its content. The packet is surfaced as-is; nothing is auto-repaired.
type IntegrityError struct {
	Digest string // "kv" or "wm"
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: %s checksum mismatch", e.Digest)
}

// #endregion integrity-error
