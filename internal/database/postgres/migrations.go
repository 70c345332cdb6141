package postgres

import (
	"context"
	"embed"

	"github.com/kozaktomas/photo-moments/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func (p *Pool) migrator() *database.Migrator {
	return &database.Migrator{DB: p.db, FS: migrationsFS, Dir: "migrations", Placeholder: "$1", Log: p.log}
}

// Migrate applies all pending migrations automatically on startup
func (p *Pool) Migrate(ctx context.Context) error {
	return p.migrator().Up(ctx)
}

// MigrationsApplied returns the list of applied migrations
func (p *Pool) MigrationsApplied(ctx context.Context) ([]string, error) {
	return p.migrator().Applied(ctx)
}
