// Package database provides SQLite connectivity and schema migrations.
//
// The service keeps three tables: the live device record, the append-only
// device history and the user accounts that receive alarm notifications.
// Their schema lives in the top-level migrations package, which embeds the
// SQL files and hands them to Migrate:
//
//	db, err := database.Open(ctx, database.ConfigFrom(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are NULLABLE or carry a DEFAULT.
package database
