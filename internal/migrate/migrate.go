// Package migrate implements version probing and idempotent relation
// creation. Schema version is derived by probing relation existence,
// never stored in a dedicated column.
package migrate

import (
	"context"
	"fmt"

	"github.com/cortexdb/query-core/internal/backend"
	"github.com/cortexdb/query-core/internal/cortexlog"
	"github.com/cortexdb/query-core/internal/schema"
)

// Migration is a versioned bundle of relation creations applied
// idempotently to the backend.
type Migration struct {
	Version     uint32
	Description string
	Relations   []schema.Relation
}

// CoreMigrations defines the single version-1 migration creating all
// seven core relations.
var CoreMigrations = []Migration{
	{
		Version:     1,
		Description: "create core relations",
		Relations:   schema.CoreRelations,
	},
}

// Runner applies pending migrations against a Backend.
type Runner struct {
	Backend  backend.Backend
	Compiler schema.Compiler
}

// CurrentVersion returns 1 iff all seven core relations exist on the
// backend, else 0.
func (r Runner) CurrentVersion(ctx context.Context) (uint32, error) {
	for _, rel := range schema.CoreRelations {
		exists, err := r.Backend.RelationExists(ctx, rel.Name)
		if err != nil {
			return 0, fmt.Errorf("probing relation %s: %w", rel.Name, err)
		}
		if !exists {
			return 0, nil
		}
	}
	return 1, nil
}

// Up applies every migration whose version exceeds the current version.
// Running it twice is a no-op: TryCreateRelation is idempotent and the
// second call observes CurrentVersion()==1 already.
func (r Runner) Up(ctx context.Context) error {
	log := cortexlog.For("migrate")

	current, err := r.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range CoreMigrations {
		if m.Version <= current {
			continue
		}
		for _, rel := range m.Relations {
			ddl := r.Compiler.CreateDDL(rel)
			created, err := r.Backend.TryCreateRelation(ctx, rel, ddl)
			if err != nil {
				return fmt.Errorf("creating relation %s: %w", rel.Name, err)
			}
			if created {
				log.WithFields(map[string]interface{}{
					"migration.version": m.Version,
					"relation":          rel.Name,
				}).Info("created relation")
			} else {
				log.WithFields(map[string]interface{}{
					"migration.version": m.Version,
					"relation":          rel.Name,
				}).Debug("relation already exists")
			}
		}
	}
	return nil
}
