// Package database provides the SQLite connection used for the command log.
//
// It manages:
//   - Connection setup with WAL mode and a busy timeout
//   - Versioned schema migrations loaded from an embedded filesystem
//   - Lifecycle (Close) and health checks
//
// The database never holds the device directory or node identity; those
// live in memory and start empty on every run.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with a
// matching .down.sql, and are applied oldest first.
package database
