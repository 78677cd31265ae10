// Package core defines the shared domain model for libmvt.
//
// It carries the indicator categories and the source field vocabulary that
// maps onto them, the Detection produced by the matching engine, the
// SmsRecord produced by backup extraction, and the closed set of backup
// error kinds.
//
// Backup failures are always *BackupError values so callers can branch on
// the kind:
//
//	records, err := backup.Parse(data, password)
//	if errors.Is(err, core.ErrInvalidPassword) {
//	    // ask again
//	}
package core
