// Package pg manages the PostgreSQL connection pool, migrations and
// error classification for SQL-backed stores.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, log); err != nil {
//		return err
//	}
//
// The Is*Error helpers let stores translate driver errors into their
// own sentinels without importing pgx themselves:
//
//	if pg.IsDuplicateKeyError(err) {
//		return queue.ErrDuplicateIdempotencyKey
//	}
package pg
