package store

import "strings"

// isBusyError reports a SQLITE_BUSY error: another connection holds the lock.
func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY")
}

// isLockedError reports the "database is locked" form of the same condition.
func isLockedError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "database is locked")
}

// isConflictError reports SQLite concurrency errors that warrant a retry.
func isConflictError(err error) bool {
	return isBusyError(err) || isLockedError(err)
}
