package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

type PgTenantRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgTenantRepository(db DBTX, logger *slog.Logger) domain.TenantRepository {
	return &PgTenantRepository{db: db, logger: logger.With("component", "tenant_repository_pg")}
}

const findTenantQuery = `SELECT id, identifier, environment_id, name, data, created_at, updated_at FROM tenants WHERE environment_id = $1 AND identifier = $2`

func (r *PgTenantRepository) FindByIdentifier(ctx context.Context, environmentID, identifier string) (*core_domain.Tenant, error) {
	var (
		t       core_domain.Tenant
		dataRaw []byte
	)
	err := r.db.QueryRow(ctx, findTenantQuery, environmentID, identifier).Scan(
		&t.ID, &t.Identifier, &t.EnvironmentID, &t.Name, &dataRaw, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Error querying tenant", "error", err, "identifier", identifier)
		return nil, fmt.Errorf("querying tenant: %w", err)
	}
	if err := fromJSONB(dataRaw, &t.Data); err != nil {
		return nil, err
	}
	return &t, nil
}
