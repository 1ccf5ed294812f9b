package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aradsms/golang_services/internal/core_domain"
	"github.com/aradsms/golang_services/internal/dispatch_service/domain"
)

type PgIntegrationRepository struct {
	db     DBTX
	logger *slog.Logger
}

func NewPgIntegrationRepository(db DBTX, logger *slog.Logger) domain.IntegrationRepository {
	return &PgIntegrationRepository{db: db, logger: logger.With("component", "integration_repository_pg")}
}

const integrationColumns = `id, identifier, organization_id, environment_id, channel_type, provider_id, name, active, "primary", priority, credentials, conditions, created_at, updated_at`

const findActiveByProviderQuery = `SELECT ` + integrationColumns + ` FROM integrations WHERE organization_id = $1 AND environment_id = $2 AND channel_type = $3 AND provider_id = $4 AND active = TRUE AND deleted = FALSE`

const findActiveByIdentifierQuery = `SELECT ` + integrationColumns + ` FROM integrations WHERE organization_id = $1 AND environment_id = $2 AND channel_type = $3 AND identifier = $4 AND active = TRUE AND deleted = FALSE`

// FindActive returns active integrations for the filter. When an identifier is
// given, lookup is by identifier and the provider id is checked afterwards.
func (r *PgIntegrationRepository) FindActive(ctx context.Context, filter domain.IntegrationFilter) ([]*core_domain.Integration, error) {
	query, key := findActiveByProviderQuery, string(filter.ProviderID)
	if filter.Identifier != "" {
		query, key = findActiveByIdentifierQuery, filter.Identifier
	}

	rows, err := r.db.Query(ctx, query, filter.OrganizationID, filter.EnvironmentID, string(filter.ChannelType), key)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error querying active integrations", "error", err, "provider_id", filter.ProviderID)
		return nil, fmt.Errorf("querying active integrations: %w", err)
	}
	defer rows.Close()

	var out []*core_domain.Integration
	for rows.Next() {
		var (
			in             core_domain.Integration
			channelType    string
			providerID     string
			credentialsRaw []byte
			conditionsRaw  []byte
		)
		if err := rows.Scan(&in.ID, &in.Identifier, &in.OrganizationID, &in.EnvironmentID, &channelType, &providerID,
			&in.Name, &in.Active, &in.Primary, &in.Priority, &credentialsRaw, &conditionsRaw, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning integration row: %w", err)
		}
		in.ChannelType = core_domain.ChannelType(channelType)
		in.ProviderID = core_domain.ProviderID(providerID)
		if err := fromJSONB(credentialsRaw, &in.Credentials); err != nil {
			return nil, err
		}
		if err := fromJSONB(conditionsRaw, &in.Conditions); err != nil {
			return nil, err
		}
		if filter.Identifier != "" && filter.ProviderID != "" && in.ProviderID != filter.ProviderID {
			r.logger.WarnContext(ctx, "Integration identifier points at a different provider",
				"identifier", filter.Identifier, "integration_provider", in.ProviderID, "expected_provider", filter.ProviderID)
			continue
		}
		out = append(out, &in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating integration rows: %w", err)
	}
	return out, nil
}
