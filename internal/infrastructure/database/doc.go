// Package database provides SQLite connectivity for DevBind.
//
// The database holds the binding I/O journal (see internal/history). This
// package manages:
//   - The connection, with WAL mode so history reads run beside writes
//   - Schema migrations embedded by the top-level migrations package
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmod 0600
//
// Usage:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if _, err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql. A matching
// .down.sql is kept for manual rollback only. Migrations are additive: new
// columns must be NULLABLE or have a DEFAULT.
package database
