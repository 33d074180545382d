package domain

import "context"

// Database is the lifecycle surface shared by the SQLite and Postgres
// backends. Each backend owns its own schema strategy.
type Database interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
